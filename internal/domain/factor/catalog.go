// Package factor holds emission factors and the immutable catalog they are
// loaded into.
package factor

import (
	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

// Catalog is an ordered, immutable, versioned set of emission factors.
// Insertion order is significant: it breaks similarity ties.
type Catalog struct {
	version string
	factors []EmissionFactor
	byID    map[string]int
}

// NewCatalog builds a catalog. Duplicate IDs fail with an IndexBuildError.
func NewCatalog(version string, factors []EmissionFactor) (*Catalog, error) {
	c := &Catalog{
		version: version,
		factors: make([]EmissionFactor, 0, len(factors)),
		byID:    make(map[string]int, len(factors)),
	}
	for _, f := range factors {
		if _, dup := c.byID[f.ID()]; dup {
			return nil, domain.NewIndexBuildError(f.ID(), "duplicate factor id")
		}
		c.byID[f.ID()] = len(c.factors)
		c.factors = append(c.factors, f)
	}
	return c, nil
}

// Version returns the catalog version label.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of factors.
func (c *Catalog) Len() int { return len(c.factors) }

// At returns the factor at insertion position i.
func (c *Catalog) At(i int) EmissionFactor { return c.factors[i] }

// Get returns the factor with id.
func (c *Catalog) Get(id string) (EmissionFactor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return EmissionFactor{}, false
	}
	return c.factors[i], true
}

// Factors returns a copy of the factor list in insertion order.
func (c *Catalog) Factors() []EmissionFactor {
	return append([]EmissionFactor(nil), c.factors...)
}
