package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
)

// Inline disposal factor used when the config names none: landfill of mixed
// municipal waste, per kg of material disposed.
const (
	DefaultDisposalDescription = "Landfill of mixed municipal solid waste"
	DefaultDisposalValue       = 0.467
	DefaultDisposalUnit        = "kg CO2e/kg"
	DefaultDisposalSource      = "UK DEFRA GHG conversion factors 2023: waste disposal, landfill"
)

// Config holds the carbonfactors configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Cache       CacheConfig       `yaml:"cache"`
	Search      SearchConfig      `yaml:"search"`
	Matching    MatchingConfig    `yaml:"matching"`
	Calculation CalculationConfig `yaml:"calculation"`
	Normalize   NormalizeConfig   `yaml:"normalize"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// MaxBatchSize caps activities per calculate request.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// CatalogConfig locates the emission factor files.
type CatalogConfig struct {
	Paths      string `yaml:"paths"` // glob, e.g. data/efdb_embeddings/*.json
	Version    string `yaml:"version"`
	Dimensions int    `yaml:"dimensions"`
}

// EmbeddingConfig lists providers in failover order.
type EmbeddingConfig struct {
	Providers        []ProviderConfig `yaml:"providers"`
	QueryInstruction string           `yaml:"query_instruction"`
	RetryBackoffMs   int              `yaml:"retry_backoff_ms"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "warn" (default) | "failover"
}

// ProviderConfig holds one embedding provider.
type ProviderConfig struct {
	Name       string       `yaml:"name"`
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Retries    int          `yaml:"retries"`
	Budget     BudgetConfig `yaml:"budget"`
}

// CacheConfig holds the embedding cache backend settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
}

// MatchingConfig tunes factor matching.
type MatchingConfig struct {
	Candidates int `yaml:"candidates"`

	// MinSimilarity is nil when unset; 0 is a valid threshold.
	MinSimilarity *float64 `yaml:"min_similarity"`
}

// DisposalConfig is the fallback disposal factor. It is on unless
// enabled is explicitly false.
type DisposalConfig struct {
	Enabled     *bool   `yaml:"enabled"`
	FactorID    string  `yaml:"factor_id"`
	Description string  `yaml:"description"`
	Value       float64 `yaml:"value"`
	Unit        string  `yaml:"unit"`
	Source      string  `yaml:"source"`
}

// CalculationConfig holds emissions calculation settings.
type CalculationConfig struct {
	Scopes       map[string]int     `yaml:"scopes"`
	DefaultScope int                `yaml:"default_scope"`
	GWPVersion   string             `yaml:"gwp_version"`
	GWPOverrides map[string]float64 `yaml:"gwp_overrides"`
	Disposal     DisposalConfig     `yaml:"default_disposal"`
	Concurrency  int                `yaml:"concurrency"`
}

// NormalizeRule maps keywords to a source type.
type NormalizeRule struct {
	SourceType string   `yaml:"source_type"`
	Keywords   []string `yaml:"keywords"`
}

// NormalizeConfig overrides the built-in classification rules when non-empty.
type NormalizeConfig struct {
	Rules []NormalizeRule `yaml:"rules"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBatchSize <= 0 {
		c.HTTP.MaxBatchSize = 100
	}
	if c.Embedding.RetryBackoffMs <= 0 {
		c.Embedding.RetryBackoffMs = 200
	}
	for i := range c.Embedding.Providers {
		p := &c.Embedding.Providers[i]
		if p.TimeoutSec <= 0 {
			p.TimeoutSec = 10
		}
		if p.Budget.Action == "" {
			p.Budget.Action = "warn"
		}
		if p.Dimensions == 0 {
			p.Dimensions = c.Catalog.Dimensions
		}
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Matching.Candidates <= 0 {
		c.Matching.Candidates = 5
	}
	if c.Matching.MinSimilarity == nil {
		v := 0.5
		c.Matching.MinSimilarity = &v
	}
	if c.Calculation.DefaultScope == 0 {
		c.Calculation.DefaultScope = 3
	}
	if c.Calculation.Concurrency <= 0 {
		c.Calculation.Concurrency = 4
	}
	d := &c.Calculation.Disposal
	if d.Enabled == nil {
		on := true
		d.Enabled = &on
	}
	if *d.Enabled && d.FactorID == "" && d.Unit == "" {
		d.Description = DefaultDisposalDescription
		d.Value = DefaultDisposalValue
		d.Unit = DefaultDisposalUnit
		d.Source = DefaultDisposalSource
	}
}

// IsEnabled reports whether the fallback disposal factor applies.
func (d DisposalConfig) IsEnabled() bool { return d.Enabled == nil || *d.Enabled }

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if strings.TrimSpace(c.Catalog.Paths) == "" {
		return fmt.Errorf("catalog.paths is required")
	}
	if len(c.Embedding.Providers) == 0 {
		return fmt.Errorf("embedding.providers needs at least one provider")
	}
	seen := make(map[string]bool, len(c.Embedding.Providers))
	for i, p := range c.Embedding.Providers {
		if p.Name == "" {
			return fmt.Errorf("embedding.providers[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("embedding.providers[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Model == "" {
			return fmt.Errorf("embedding.providers.%s.model is required", p.Name)
		}
		if p.Retries < 0 {
			return fmt.Errorf("embedding.providers.%s.retries must be >= 0, got %d", p.Name, p.Retries)
		}
		switch p.Budget.Action {
		case "", "warn", "failover":
			// ok
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"failover\", got %q",
				p.Name, p.Budget.Action,
			)
		}
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"redis\" or \"memory\", got %q", c.Cache.Driver)
	}
	if m := c.Matching.MinSimilarity; m != nil && (*m < -1 || *m > 1) {
		return fmt.Errorf("matching.min_similarity must be within [-1, 1], got %v", *m)
	}
	if c.Calculation.DefaultScope < 1 || c.Calculation.DefaultScope > 3 {
		return fmt.Errorf("calculation.default_scope must be 1, 2 or 3, got %d", c.Calculation.DefaultScope)
	}
	known := c.sourceTypes()
	for src, scope := range c.Calculation.Scopes {
		if !known[activity.CanonicalSourceType(src)] {
			return fmt.Errorf("calculation.scopes.%s is not a known source type", src)
		}
		if scope < 1 || scope > 3 {
			return fmt.Errorf("calculation.scopes.%s must be 1, 2 or 3, got %d", src, scope)
		}
	}
	for gas, v := range c.Calculation.GWPOverrides {
		if v <= 0 {
			return fmt.Errorf("calculation.gwp_overrides.%s must be positive, got %v", gas, v)
		}
	}
	if d := c.Calculation.Disposal; d.Enabled != nil && *d.Enabled && d.FactorID == "" && d.Unit == "" {
		return fmt.Errorf("calculation.default_disposal needs factor_id or value and unit")
	}
	return nil
}

// sourceTypes returns the built-in source types plus those introduced by
// normalize rules, in canonical form.
func (c *Config) sourceTypes() map[string]bool {
	known := make(map[string]bool)
	for _, st := range activity.SourceTypes() {
		known[st] = true
	}
	for _, r := range c.Normalize.Rules {
		known[activity.CanonicalSourceType(r.SourceType)] = true
	}
	return known
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
