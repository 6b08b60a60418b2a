package carbonfactors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// operation names a client call in metrics and logs.
type operation string

const (
	opLoad      operation = "load"
	opReload    operation = "reload"
	opSearch    operation = "search"
	opCalculate operation = "calculate"
)

// outcome classifies a call result for the "outcome" label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidActivity):
		return "invalid_input"
	case errors.Is(err, ErrCatalogEmpty):
		return "catalog_empty"
	case errors.Is(err, ErrIndexBuild):
		return "catalog_invalid"
	case errors.Is(err, ErrEmbedding), errors.Is(err, ErrProviderUnavailable):
		return "embedding_failed"
	default:
		return "error"
	}
}

// clientMetrics are the collectors behind WithPrometheus.
type clientMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carbonfactors",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Client calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carbonfactors",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "Client call latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carbonfactors",
			Subsystem: "sdk",
			Name:      "items_total",
			Help:      "Search hits returned, reports produced and factors loaded.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.items); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already
// registered under the same name so two clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("carbonfactors: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("carbonfactors: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records client calls. A nil observer, logger or metrics set is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one call of op; items counts what it produced.
func (o *observer) observe(op operation, start time.Time, items int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	result := outcome(err)

	if m := o.metrics; m != nil {
		m.calls.WithLabelValues(string(op), result).Inc()
		m.duration.WithLabelValues(string(op)).Observe(dur.Seconds())
		if err == nil && items > 0 {
			m.items.WithLabelValues(string(op)).Add(float64(items))
		}
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("carbonfactors call failed",
			slog.String("op", string(op)),
			slog.String("outcome", result),
			slog.Duration("duration", dur),
			slog.Any("error", err),
		)
		return
	}
	o.logger.Debug("carbonfactors call completed",
		slog.String("op", string(op)),
		slog.Int("items", items),
		slog.Duration("duration", dur),
	)
}
