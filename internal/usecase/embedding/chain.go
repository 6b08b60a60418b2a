package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
)

// Provider is one named backend in the failover chain.
type Provider struct {
	Name     string
	Embedder domain.Embedder
	// Timeout bounds a single attempt; zero means only the caller's deadline applies.
	Timeout time.Duration
	// Retries is the number of extra attempts before failing over.
	Retries int
}

// Chain embeds text with the first provider that answers, in configured order.
// Selection is per call, so a recovered primary is used again on the next call.
// Returned vectors are L2-normalized.
type Chain struct {
	providers  []Provider
	dimensions int
	backoff    time.Duration
	logger     *zap.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithBackoff sets the pause between retries of the same provider.
func WithBackoff(d time.Duration) ChainOption {
	return func(c *Chain) { c.backoff = d }
}

// WithDimensions rejects vectors whose length differs from dims (0 disables the check).
func WithDimensions(dims int) ChainOption {
	return func(c *Chain) { c.dimensions = dims }
}

// NewChain creates a failover chain. At least one provider is required.
func NewChain(providers []Provider, logger *zap.Logger, opts ...ChainOption) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("embedding chain needs at least one provider")
	}
	seen := make(map[string]struct{}, len(providers))
	for i, p := range providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider %d has no name", i)
		}
		if p.Embedder == nil {
			return nil, fmt.Errorf("provider %s has no embedder", p.Name)
		}
		if p.Retries < 0 {
			return nil, fmt.Errorf("provider %s: retries must be >= 0", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	c := &Chain{
		providers: append([]Provider(nil), providers...),
		backoff:   100 * time.Millisecond,
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Providers returns provider names in failover order.
func (c *Chain) Providers() []string {
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name
	}
	return out
}

// Embed tries each provider in order, retrying transient failures, and fails
// with ErrEmbedding joined with the last provider error once all are exhausted.
// Cancellation of ctx aborts immediately.
func (c *Chain) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var lastErr error
	for pi, p := range c.providers {
		for attempt := 0; attempt <= p.Retries; attempt++ {
			if attempt > 0 {
				if err := c.sleep(ctx); err != nil {
					return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
				}
			}
			res, err := c.attempt(ctx, p, text)
			if err == nil {
				if pi > 0 {
					c.logger.Info("Embedding served by fallback provider",
						zap.String("provider", p.Name), zap.Int("position", pi))
				}
				domain.UsageFromContext(ctx).Record(p.Name, res.TotalTokens)
				return res, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", ctxErr)
			}
			lastErr = fmt.Errorf("provider %s: %w", p.Name, err)
			c.logger.Warn("Embedding attempt failed",
				zap.String("provider", p.Name),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", p.Retries+1),
				zap.Error(err),
			)
			if !retryable(err) {
				break
			}
		}
		if pi < len(c.providers)-1 {
			metrics.EmbeddingFailoverTotal.WithLabelValues(p.Name, failureReason(lastErr)).Inc()
		}
	}
	metrics.EmbeddingExhaustedTotal.Inc()
	return domain.EmbeddingResult{}, errors.Join(domain.ErrEmbedding, lastErr)
}

func (c *Chain) attempt(ctx context.Context, p Provider, text string) (domain.EmbeddingResult, error) {
	actx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	res, err := p.Embedder.Embed(actx, text)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return domain.EmbeddingResult{}, fmt.Errorf("%w: timed out after %s", domain.ErrProviderUnavailable, p.Timeout)
		}
		return domain.EmbeddingResult{}, err
	}
	if c.dimensions > 0 && len(res.Embedding) != c.dimensions {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w: got %d, want %d",
			domain.ErrProviderUnavailable, domain.ErrVectorDimMismatch, len(res.Embedding), c.dimensions)
	}
	vec, err := domain.NormalizeL2(res.Embedding)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	res.Embedding = vec
	res.Provider = p.Name
	return res, nil
}

func (c *Chain) sleep(ctx context.Context) error {
	if c.backoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HealthCheck succeeds when at least one provider is healthy. Providers
// without a health check are skipped; if none has one, the chain is healthy.
func (c *Chain) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		hc, ok := p.Embedder.(domain.HealthChecker)
		if !ok {
			continue
		}
		err := hc.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, errors.Join(errs...))
}

// retryable reports whether another attempt on the same provider may help.
// Dimension mismatches and budget exhaustion will not change on retry.
func retryable(err error) bool {
	if errors.Is(err, domain.ErrVectorDimMismatch) || errors.Is(err, domain.ErrBudgetExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrProviderUnavailable)
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, domain.ErrBudgetExceeded):
		return "budget"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "dimension_mismatch"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
