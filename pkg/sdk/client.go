package carbonfactors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/db"
	dbMemory "github.com/kailas-cloud/carbonfactors/internal/db/memory"
	dbRedis "github.com/kailas-cloud/carbonfactors/internal/db/redis"
	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/gwp"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
	"github.com/kailas-cloud/carbonfactors/internal/repository/catalog"
	"github.com/kailas-cloud/carbonfactors/internal/repository/embcache"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/calculate"
	embeddinguc "github.com/kailas-cloud/carbonfactors/internal/usecase/embedding"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/carbonfactors/internal/usecase/health"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/matching"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	sdkProviderName         = "sdk"
)

// engineHolder is the internal interface for the catalog snapshot, swapped in tests.
type engineHolder interface {
	Current() (*engine.Engine, error)
	Reload(ctx context.Context) (*engine.Engine, error)
	CatalogStatus() (string, int)
}

// Client is the carbonfactors SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	engines   engineHolder
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and loads the catalog.
// The provided context bounds the cache readiness check and the catalog load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogPattern == "" {
		return nil, errors.New("carbonfactors: catalog files required (use WithCatalogFiles)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("carbonfactors: embedder required (use WithEmbedder)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	c, err := wireClient(store, cfg, obs)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	start := time.Now()
	e, err := c.engines.Reload(ctx)
	loaded := 0
	if err == nil {
		loaded = e.Catalog.Len()
	}
	c.obs.observe(opLoad, start, loaded, err)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("carbonfactors: load catalog: %w", err)
	}
	return c, nil
}

// createStore returns the embedding cache backend, or nil without caching.
func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	var store db.Store
	switch cfg.cacheDriver {
	case "":
		return nil, nil
	case "memory":
		store = dbMemory.NewStore()
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("carbonfactors: create redis store: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("carbonfactors: unknown cache driver %q", cfg.cacheDriver)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("carbonfactors: cache not ready: %w", err)
	}
	return store, nil
}

func closeStore(store db.Store) {
	if store != nil {
		store.Close()
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	var emb domain.Embedder = &embedderAdapter{inner: cfg.embedder}
	if store != nil {
		namespace := fmt.Sprintf("%s:%d", sdkProviderName, cfg.dimensions)
		emb = embcache.New(emb, store, namespace, cfg.cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}
	chain, err := embeddinguc.NewChain([]embeddinguc.Provider{{
		Name:     sdkProviderName,
		Embedder: emb,
		Retries:  cfg.retries,
	}}, logger, embeddinguc.WithDimensions(cfg.dimensions))
	if err != nil {
		return nil, fmt.Errorf("carbonfactors: %w", err)
	}

	table := gwp.Default()
	if cfg.gwpVersion != "" || len(cfg.gwpOverrides) > 0 {
		table, err = table.WithOverrides(cfg.gwpVersion, cfg.gwpOverrides)
		if err != nil {
			return nil, fmt.Errorf("carbonfactors: %w", err)
		}
	}

	var calc calculate.Config
	if d := cfg.disposal; d != nil {
		calc.Disposal = calculate.DisposalDefault{
			Enabled:     true,
			Description: d.description,
			Value:       d.value,
			Unit:        d.unit,
			Source:      d.source,
		}
	}

	builder := engine.NewBuilder(chain, engine.Config{
		Matching: matching.Config{
			Candidates:    cfg.candidates,
			MinSimilarity: cfg.minSimilarity,
		},
		Calculation: calc,
		GWP:         table,
	})
	loader := catalog.NewLoader(catalog.Config{
		Pattern:    cfg.catalogPattern,
		Version:    cfg.catalogVersion,
		Dimensions: cfg.dimensions,
	}, logger)
	holder := engine.NewHolder(builder, func(ctx context.Context) (*factor.Catalog, error) {
		c, _, err := loader.Load(ctx)
		return c, err
	}, logger)

	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}
	return &Client{
		store:     store,
		engines:   holder,
		healthSvc: healthuc.New(holder, cache, nil),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	closeStore(c.store)
}

// CatalogInfo describes the loaded catalog.
type CatalogInfo struct {
	Version    string
	Factors    int
	Dimensions int
	LoadedAt   time.Time
}

// Catalog returns the active catalog description.
func (c *Client) Catalog() (CatalogInfo, error) {
	e, err := c.engines.Current()
	if err != nil {
		return CatalogInfo{}, err
	}
	return catalogInfo(e), nil
}

// Reload re-reads the catalog files. On failure the previous catalog stays active.
func (c *Client) Reload(ctx context.Context) (info CatalogInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opReload, start, info.Factors, err) }()

	e, err := c.engines.Reload(ctx)
	if err != nil {
		return CatalogInfo{}, fmt.Errorf("reload catalog: %w", err)
	}
	return catalogInfo(e), nil
}

func catalogInfo(e *engine.Engine) CatalogInfo {
	return CatalogInfo{
		Version:    e.Catalog.Version(),
		Factors:    e.Catalog.Len(),
		Dimensions: e.Index.Dimensions(),
		LoadedAt:   e.LoadedAt,
	}
}
