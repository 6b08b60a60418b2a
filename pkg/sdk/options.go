package carbonfactors

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogPattern string
	catalogVersion string
	dimensions     int

	embedder Embedder
	retries  int

	cacheDriver   string // "", "memory" or "redis"
	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	candidates    int
	minSimilarity *float64
	gwpVersion    string
	gwpOverrides  map[string]float64

	disposal *disposalFactor

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogFiles sets the glob pattern of the EFDB export files to load. Required.
func WithCatalogFiles(pattern string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPattern = pattern
	})
}

// WithCatalogVersion labels the catalog. By default the label is a content hash.
func WithCatalogVersion(version string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogVersion = version
	})
}

// WithDimensions requires every factor and query vector to have dim components.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithRetries sets how many times a failed embedding call is retried.
func WithRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.retries = n
	})
}

// WithMemoryCache caches query embeddings in process memory.
// ttl <= 0 keeps entries for the client lifetime.
func WithMemoryCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.cacheTTL = ttl
	})
}

// WithRedisCache caches query embeddings in Redis, shared across processes.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithMatching tunes how many candidates are considered per activity
// component and the similarity below which a match is flagged.
// Defaults: 5 candidates, 0.5 similarity.
func WithMatching(candidates int, minSimilarity float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidates = candidates
		c.minSimilarity = &minSimilarity
	})
}

type disposalFactor struct {
	description string
	value       float64
	unit        string
	source      string
}

// WithDefaultDisposal adds a disposal process to activities that state none,
// using the given factor (e.g. 0.467 "kg CO2e/kg" for landfill). Each use is
// listed in the report assumptions. Disabled by default.
func WithDefaultDisposal(description string, value float64, unit, source string) Option {
	return optionFunc(func(c *clientConfig) {
		c.disposal = &disposalFactor{description: description, value: value, unit: unit, source: source}
	})
}

// WithGWP replaces or adds global warming potentials on top of AR6 GWP-100.
// An empty version keeps the AR6 label.
func WithGWP(version string, overrides map[string]float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.gwpVersion = version
		c.gwpOverrides = overrides
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
