package factor

import (
	"fmt"
	"math"
	"strings"
)

// Provenance names where a factor's value comes from.
type Provenance struct {
	Source   string // source of data, e.g. "IPCC 2006 Guidelines"
	Provider string // data provider, e.g. "EFDB"
	Region   string
}

// Label renders the provenance as a single data-source string for reports.
func (p Provenance) Label() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(p.Provider); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(p.Source); s != "" && s != strings.TrimSpace(p.Provider) {
		parts = append(parts, s)
	}
	return strings.Join(parts, ": ")
}

// EmissionFactor is the emission factor aggregate (immutable value object).
type EmissionFactor struct {
	id          string
	category    string
	gas         string
	description string
	value       float64
	unit        string
	embedding   []float32
	provenance  Provenance
}

// New validates and creates an EmissionFactor.
// ID and unit are required; value must be finite and non-negative; embedding must be non-empty.
func New(
	id, category, gas, description string, value float64, unit string,
	embedding []float32, provenance Provenance,
) (EmissionFactor, error) {
	if strings.TrimSpace(id) == "" {
		return EmissionFactor{}, fmt.Errorf("factor ID is required")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return EmissionFactor{}, fmt.Errorf("factor %s: value must be finite", id)
	}
	if value < 0 {
		return EmissionFactor{}, fmt.Errorf("factor %s: value must be non-negative, got %v", id, value)
	}
	if strings.TrimSpace(unit) == "" {
		return EmissionFactor{}, fmt.Errorf("factor %s: unit is required", id)
	}
	if len(embedding) == 0 {
		return EmissionFactor{}, fmt.Errorf("factor %s: embedding is required", id)
	}
	return EmissionFactor{
		id:          strings.TrimSpace(id),
		category:    strings.TrimSpace(category),
		gas:         strings.TrimSpace(gas),
		description: strings.TrimSpace(description),
		value:       value,
		unit:        strings.TrimSpace(unit),
		embedding:   append([]float32(nil), embedding...),
		provenance:  provenance,
	}, nil
}

// Reconstruct creates an EmissionFactor without validation (tests, cache hydration).
func Reconstruct(
	id, category, gas, description string, value float64, unit string,
	embedding []float32, provenance Provenance,
) EmissionFactor {
	return EmissionFactor{
		id: id, category: category, gas: gas, description: description,
		value: value, unit: unit, embedding: embedding, provenance: provenance,
	}
}

// ID returns the factor identifier.
func (f EmissionFactor) ID() string { return f.id }

// Category returns the taxonomy code (IPCC category).
func (f EmissionFactor) Category() string { return f.category }

// Gas returns the declared gas.
func (f EmissionFactor) Gas() string { return f.gas }

// Description returns the factor description.
func (f EmissionFactor) Description() string { return f.description }

// Value returns the factor coefficient.
func (f EmissionFactor) Value() float64 { return f.value }

// Unit returns the compound unit, e.g. "kg CO2e/kg".
func (f EmissionFactor) Unit() string { return f.unit }

// Embedding returns the stored embedding. Callers must not modify it.
func (f EmissionFactor) Embedding() []float32 { return f.embedding }

// Provenance returns the data source of the factor.
func (f EmissionFactor) Provenance() Provenance { return f.provenance }

// Dimensions returns the embedding length.
func (f EmissionFactor) Dimensions() int { return len(f.embedding) }
