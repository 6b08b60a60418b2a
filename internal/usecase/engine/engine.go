// Package engine composes the search and calculation services over one
// catalog snapshot and swaps snapshots atomically on reload.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/gwp"
	"github.com/kailas-cloud/carbonfactors/internal/index"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/calculate"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/matching"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/search"
)

// Engine is an immutable snapshot: a catalog, its index and the services built on it.
type Engine struct {
	Catalog   *factor.Catalog
	Index     *index.Index
	Search    *search.Service
	Calculate *calculate.Service
	LoadedAt  time.Time
}

// Config holds the settings every snapshot is built with.
type Config struct {
	Matching    matching.Config
	Calculation calculate.Config
	// Rules overrides the normalizer keyword rules; nil keeps the defaults.
	Rules []normalize.Rule
	// GWP is the gas table; nil selects AR6 GWP-100.
	GWP *gwp.Table
}

// Builder turns catalogs into engines.
type Builder struct {
	embed search.Embedder
	cfg   Config
}

// NewBuilder creates a builder that embeds queries with embed.
func NewBuilder(embed search.Embedder, cfg Config) *Builder {
	if cfg.GWP == nil {
		cfg.GWP = gwp.Default()
	}
	return &Builder{embed: embed, cfg: cfg}
}

// Build indexes c and wires the services.
func (b *Builder) Build(c *factor.Catalog) (*Engine, error) {
	idx, err := index.Build(c)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	searchSvc := search.New(idx, b.embed)
	matcher := matching.New(searchSvc, b.cfg.GWP, b.cfg.Matching)
	calc, err := calculate.New(normalize.New(b.cfg.Rules), matcher, c, b.cfg.GWP.Version(), b.cfg.Calculation)
	if err != nil {
		return nil, fmt.Errorf("build calculator: %w", err)
	}
	return &Engine{
		Catalog:   c,
		Index:     idx,
		Search:    searchSvc,
		Calculate: calc,
		LoadedAt:  time.Now().UTC(),
	}, nil
}

// LoadFunc reads a fresh catalog.
type LoadFunc func(ctx context.Context) (*factor.Catalog, error)

// Holder owns the current engine. Reads are lock-free; reloads are serialized
// and a failed reload keeps the previous snapshot.
type Holder struct {
	current atomic.Pointer[Engine]
	reload  sync.Mutex
	builder *Builder
	load    LoadFunc
	logger  *zap.Logger
}

// NewHolder creates an empty holder. Call Reload to load the first catalog.
func NewHolder(builder *Builder, load LoadFunc, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{builder: builder, load: load, logger: logger}
}

// Current returns the active engine or ErrCatalogEmpty before the first successful load.
func (h *Holder) Current() (*Engine, error) {
	e := h.current.Load()
	if e == nil {
		return nil, domain.ErrCatalogEmpty
	}
	return e, nil
}

// Reload loads the catalog, builds a new engine and swaps it in.
func (h *Holder) Reload(ctx context.Context) (*Engine, error) {
	h.reload.Lock()
	defer h.reload.Unlock()

	start := time.Now()
	c, err := h.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	e, err := h.builder.Build(c)
	if err != nil {
		return nil, err
	}
	prev := h.current.Swap(e)

	if prev != nil && prev.Catalog.Version() != c.Version() {
		metrics.CatalogFactors.DeleteLabelValues(prev.Catalog.Version())
	}
	metrics.CatalogFactors.WithLabelValues(c.Version()).Set(float64(c.Len()))
	h.logger.Info("Catalog loaded",
		zap.String("version", c.Version()),
		zap.Int("factors", c.Len()),
		zap.Int("dimensions", e.Index.Dimensions()),
		zap.Duration("duration", time.Since(start)),
	)
	return e, nil
}

// CatalogStatus returns the active catalog version and size; zero when nothing is loaded.
func (h *Holder) CatalogStatus() (string, int) {
	e := h.current.Load()
	if e == nil {
		return "", 0
	}
	return e.Catalog.Version(), e.Catalog.Len()
}
