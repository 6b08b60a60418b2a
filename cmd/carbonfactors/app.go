package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/config"
	"github.com/kailas-cloud/carbonfactors/internal/db"
	dbMemory "github.com/kailas-cloud/carbonfactors/internal/db/memory"
	dbRedis "github.com/kailas-cloud/carbonfactors/internal/db/redis"
	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/gwp"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
	budgetrepo "github.com/kailas-cloud/carbonfactors/internal/repository/budget"
	"github.com/kailas-cloud/carbonfactors/internal/repository/catalog"
	"github.com/kailas-cloud/carbonfactors/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/carbonfactors/internal/transport/openai"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/calculate"
	embeddinguc "github.com/kailas-cloud/carbonfactors/internal/usecase/embedding"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/carbonfactors/internal/usecase/health"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/matching"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
	usageuc "github.com/kailas-cloud/carbonfactors/internal/usecase/usage"
)

const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// app is the composition root shared by every command.
type app struct {
	store   db.Store
	chain   *embeddinguc.Chain
	engines *engine.Holder
	health  *healthuc.Service
	usage   *usageuc.Service
}

// newApp wires storage, the embedding chain and the engine holder, then loads
// the catalog. A catalog that fails to load is fatal at startup.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCalculationMetrics()

	a := &app{}
	store, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	var budgets []usageuc.BudgetReader
	a.chain, budgets, err = buildChain(ctx, cfg, store, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	var embedder domain.Embedder = a.chain
	if cfg.Embedding.QueryInstruction != "" {
		// Outermost, so cache keys include the instruction.
		embedder = domain.NewInstructionEmbedder(a.chain, cfg.Embedding.QueryInstruction)
	}

	table, err := buildGWP(cfg.Calculation)
	if err != nil {
		a.close()
		return nil, err
	}
	builder := engine.NewBuilder(embedder, engine.Config{
		Matching: matching.Config{
			Candidates:    cfg.Matching.Candidates,
			MinSimilarity: cfg.Matching.MinSimilarity,
		},
		Calculation: calculationConfig(cfg.Calculation),
		Rules:       normalizeRules(cfg.Normalize),
		GWP:         table,
	})

	loader := catalog.NewLoader(catalog.Config{
		Pattern:    cfg.Catalog.Paths,
		Version:    cfg.Catalog.Version,
		Dimensions: cfg.Catalog.Dimensions,
	}, logger)
	a.engines = engine.NewHolder(builder, func(ctx context.Context) (*factor.Catalog, error) {
		c, _, err := loader.Load(ctx)
		return c, err
	}, logger)

	if _, err := a.engines.Reload(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("initial catalog load: %w", err)
	}

	// Pass nil interfaces, not typed nil pointers.
	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}
	a.health = healthuc.New(a.engines, cache, a.chain)
	a.usage = usageuc.New(budgets...)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// openStore returns the cache backend, or nil when caching is disabled.
func openStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var store db.Store
	switch cfg.Driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		store = s
	case "memory":
		store = dbMemory.NewStore()
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	logger.Info("Embedding cache ready", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store, nil
}

// buildChain assembles one decorator stack per provider,
// OpenAI -> Cached -> Instrumented, and puts them in failover order.
// It also returns the budgets of providers that have one.
func buildChain(
	ctx context.Context, cfg *config.Config, store db.Store, logger *zap.Logger,
) (*embeddinguc.Chain, []usageuc.BudgetReader, error) {
	providers := make([]embeddinguc.Provider, 0, len(cfg.Embedding.Providers))
	var budgets []usageuc.BudgetReader
	for _, pc := range cfg.Embedding.Providers {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Dimensions: pc.Dimensions,
			Provider:   pc.Name,
			Logger:     logger,
		})

		var embedder domain.Embedder = base
		if store != nil {
			namespace := fmt.Sprintf("%s:%s:%d", pc.Name, pc.Model, pc.Dimensions)
			embedder = embcache.New(base, store, namespace,
				time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
		}

		// Go gotcha: (*Budget)(nil) wrapped in BudgetChecker != nil.
		var budget embeddinguc.BudgetChecker
		if pc.Budget.DailyTokenLimit > 0 || pc.Budget.MonthlyTokenLimit > 0 {
			action := embeddinguc.BudgetActionWarn
			if pc.Budget.Action == string(embeddinguc.BudgetActionFailover) {
				action = embeddinguc.BudgetActionFailover
			}
			b := embeddinguc.NewBudget(pc.Name, pc.Budget.DailyTokenLimit, pc.Budget.MonthlyTokenLimit, action, logger)
			if store != nil {
				b.WithStore(ctx, budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
			}
			budget = b
			budgets = append(budgets, b)
		}

		providers = append(providers, embeddinguc.Provider{
			Name:     pc.Name,
			Embedder: embeddinguc.NewInstrumentedEmbedder(embedder, pc.Name, pc.Model, budget, logger),
			Timeout:  time.Duration(pc.TimeoutSec) * time.Second,
			Retries:  pc.Retries,
		})
	}

	chain, err := embeddinguc.NewChain(providers, logger,
		embeddinguc.WithBackoff(time.Duration(cfg.Embedding.RetryBackoffMs)*time.Millisecond),
		embeddinguc.WithDimensions(cfg.Catalog.Dimensions),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build embedding chain: %w", err)
	}
	logger.Info("Embedding chain created", zap.Strings("providers", chain.Providers()))
	return chain, budgets, nil
}

func buildGWP(cfg config.CalculationConfig) (*gwp.Table, error) {
	table := gwp.Default()
	if cfg.GWPVersion == "" && len(cfg.GWPOverrides) == 0 {
		return table, nil
	}
	t, err := table.WithOverrides(cfg.GWPVersion, cfg.GWPOverrides)
	if err != nil {
		return nil, fmt.Errorf("gwp table: %w", err)
	}
	return t, nil
}

func calculationConfig(cfg config.CalculationConfig) calculate.Config {
	return calculate.Config{
		Scopes:       cfg.Scopes,
		DefaultScope: cfg.DefaultScope,
		Concurrency:  cfg.Concurrency,
		Disposal: calculate.DisposalDefault{
			Enabled:     cfg.Disposal.IsEnabled(),
			FactorID:    cfg.Disposal.FactorID,
			Description: cfg.Disposal.Description,
			Value:       cfg.Disposal.Value,
			Unit:        cfg.Disposal.Unit,
			Source:      cfg.Disposal.Source,
		},
	}
}

// normalizeRules returns nil for an empty config so the built-in rules apply.
func normalizeRules(cfg config.NormalizeConfig) []normalize.Rule {
	if len(cfg.Rules) == 0 {
		return nil
	}
	rules := make([]normalize.Rule, len(cfg.Rules))
	for i, r := range cfg.Rules {
		rules[i] = normalize.Rule{SourceType: r.SourceType, Keywords: r.Keywords}
	}
	return rules
}
