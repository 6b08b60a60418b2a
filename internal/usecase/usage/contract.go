package usage

// BudgetReader provides read-only access to one provider's token budget.
// period is "daily" or "monthly".
type BudgetReader interface {
	Provider() string
	Limit(period string) int64
	Used(period string) int64
	Remaining(period string) int64
}
