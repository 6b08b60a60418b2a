package calculate

import (
	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
)

// DefaultScope is used for source types missing from the scope map.
const DefaultScope = 3

// DefaultConcurrency bounds parallel activity calculations in a batch.
const DefaultConcurrency = 4

// DisposalDefault is the fallback factor applied when an activity states no disposal.
// FactorID selects a catalog factor; otherwise the inline Value and Unit are used.
type DisposalDefault struct {
	Enabled     bool
	FactorID    string
	Description string
	Value       float64
	Unit        string
	Source      string
}

// Config holds calculation settings.
type Config struct {
	// Scopes maps source types to GHG Protocol scopes. Entries override
	// DefaultScopes; keys are matched via activity.CanonicalSourceType.
	Scopes       map[string]int
	DefaultScope int
	Disposal     DisposalDefault
	Concurrency  int
}

// DefaultScopes returns the built-in source type → scope mapping.
func DefaultScopes() map[string]int {
	return map[string]int{
		activity.SourceProduction:           3,
		activity.SourceTransport:            3,
		activity.SourceDisposal:             3,
		activity.SourcePurchasedElectricity: 2,
		activity.SourceStationaryCombustion: 1,
		activity.SourceMobileCombustion:     1,
		activity.SourceFugitive:             1,
	}
}

func (c *Config) applyDefaults() {
	scopes := DefaultScopes()
	for k, v := range c.Scopes {
		scopes[activity.CanonicalSourceType(k)] = v
	}
	c.Scopes = scopes
	if c.DefaultScope < 1 || c.DefaultScope > 3 {
		c.DefaultScope = DefaultScope
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// ScopeOf returns the scope of sourceType and whether it is mapped. Unmapped
// source types report the default scope.
func (c Config) ScopeOf(sourceType string) (int, bool) {
	st := activity.CanonicalSourceType(sourceType)
	if scope, ok := c.Scopes[st]; ok {
		return scope, true
	}
	for k, scope := range c.Scopes {
		if activity.CanonicalSourceType(k) == st {
			return scope, true
		}
	}
	if scope, ok := DefaultScopes()[st]; ok {
		return scope, true
	}
	if c.DefaultScope < 1 || c.DefaultScope > 3 {
		return DefaultScope, false
	}
	return c.DefaultScope, false
}
