// Package usage reports embedding token consumption against provider budgets.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Period selects the budget window.
type Period string

const (
	// PeriodDay is the current UTC day.
	PeriodDay Period = "day"
	// PeriodMonth is the current UTC month.
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" and "month"; empty selects day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q (want day or month)", s)
	}
}

// ProviderUsage is one provider's consumption in the period.
// Limit 0 and Remaining -1 mean unlimited.
type ProviderUsage struct {
	Provider  string
	Limit     int64
	Used      int64
	Remaining int64
	Exhausted bool
}

// Report is token usage across providers for one period.
type Report struct {
	Period      Period
	PeriodStart time.Time
	PeriodEnd   time.Time
	Providers   []ProviderUsage
}

// Service handles usage reporting.
type Service struct {
	budgets []BudgetReader
	now     func() time.Time
}

// New creates a Service. Providers without a budget are simply absent.
func New(budgets ...BudgetReader) *Service {
	return &Service{budgets: budgets, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := s.now()
	r := Report{Period: period, Providers: make([]ProviderUsage, 0, len(s.budgets))}

	window := "daily"
	switch period {
	case PeriodMonth:
		window = "monthly"
		r.PeriodStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r.PeriodEnd = r.PeriodStart.AddDate(0, 1, 0)
	default:
		r.Period = PeriodDay
		r.PeriodStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.PeriodEnd = r.PeriodStart.Add(24 * time.Hour)
	}

	for _, b := range s.budgets {
		limit := b.Limit(window)
		remaining := b.Remaining(window)
		r.Providers = append(r.Providers, ProviderUsage{
			Provider:  b.Provider(),
			Limit:     limit,
			Used:      b.Used(window),
			Remaining: remaining,
			Exhausted: limit > 0 && remaining <= 0,
		})
	}
	return r
}
