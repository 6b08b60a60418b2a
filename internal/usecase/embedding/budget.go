package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
)

// BudgetAction defines behavior when a provider's token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning and keeps using the provider.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionFailover reports the provider unavailable so the chain moves on.
	BudgetActionFailover BudgetAction = "failover"
)

// BudgetStore persists budget counters across restarts and replicas.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is a token counter that resets when its period rolls over.
type window struct {
	name   string // "daily" / "monthly"
	layout string // period key layout
	limit  int64
	used   int64
	period string
}

func (w *window) roll(now time.Time) {
	if p := now.Format(w.layout); p != w.period {
		w.period = p
		w.used = 0
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	if r := w.limit - w.used; r > 0 {
		return r
	}
	return 0
}

// Budget caps the tokens one embedding provider may consume per day and month.
// Check is in-memory; Record writes behind to the optional store.
type Budget struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	windows  [2]*window
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudget creates a budget. A zero limit means unlimited.
func NewBudget(provider string, dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *Budget {
	b := &Budget{
		provider: provider,
		action:   action,
		windows: [2]*window{
			{name: "daily", layout: "2006-01-02", limit: dailyLimit},
			{name: "monthly", layout: "2006-01", limit: monthlyLimit},
		},
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
	}
	return b
}

// WithStore attaches a persistence store and loads the current counters.
func (b *Budget) WithStore(ctx context.Context, store BudgetStore) *Budget {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = store
	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
		val, err := store.Get(ctx, b.key(w))
		if err != nil {
			b.logger.Warn("Failed to load budget from store",
				zap.String("provider", b.provider), zap.String("period", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}
	return b
}

func (b *Budget) key(w *window) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, w.period)
}

// Check reports whether the provider may serve another request.
func (b *Budget) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
		if !w.exceeded() {
			continue
		}
		if b.action == BudgetActionFailover {
			return fmt.Errorf("%w: %w: %s limit %d reached",
				domain.ErrProviderUnavailable, domain.ErrBudgetExceeded, w.name, w.limit)
		}
		b.logger.Warn("Token budget exceeded",
			zap.String("provider", b.provider),
			zap.String("period", w.name),
			zap.Int64("used", w.used),
			zap.Int64("limit", w.limit),
		)
	}
	return nil
}

// Record adds consumed tokens and updates the remaining-budget gauges.
func (b *Budget) Record(tokens int64) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	now := b.now()
	keys := make([]string, 0, len(b.windows))
	for _, w := range b.windows {
		w.roll(now)
		w.used += tokens
		keys = append(keys, b.key(w))
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(b.provider, w.name).Set(float64(w.remaining()))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Remaining returns tokens left for "daily" or "monthly" (-1 if unlimited).
func (b *Budget) Remaining(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for _, w := range b.windows {
		if w.name == period {
			w.roll(now)
			return w.remaining()
		}
	}
	return -1
}

// Provider returns the provider the budget belongs to.
func (b *Budget) Provider() string { return b.provider }

// Limit returns the "daily" or "monthly" token limit (0 if unlimited).
func (b *Budget) Limit(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.windows {
		if w.name == period {
			return w.limit
		}
	}
	return 0
}

// Used returns tokens consumed in the current "daily" or "monthly" window.
func (b *Budget) Used(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for _, w := range b.windows {
		if w.name == period {
			w.roll(now)
			return w.used
		}
	}
	return 0
}
