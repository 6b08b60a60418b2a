// Package gwp holds global-warming-potential multipliers that convert a mass
// of a greenhouse gas into CO2-equivalent mass.
package gwp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrUnknownGas signals a gas with no GWP entry in the active table.
var ErrUnknownGas = errors.New("unknown gas")

// DefaultVersion labels the built-in table: IPCC AR6, 100-year horizon.
const DefaultVersion = "AR6-GWP100"

// CO2e is the canonical name of an already CO2-equivalent mass.
const CO2e = "CO2e"

var ar6 = map[string]float64{
	"CO2":      1,
	"CH4":      27,
	"N2O":      273,
	"SF6":      25200,
	"NF3":      17400,
	"HFC-134A": 1530,
	"HFC-23":   14600,
	"CF4":      7380,
	"C2F6":     12400,
}

// Table is an immutable, versioned gas → GWP mapping.
type Table struct {
	version string
	values  map[string]float64
}

// Default returns the AR6 GWP-100 table.
func Default() *Table {
	t, _ := New(DefaultVersion, ar6)
	return t
}

// New creates a table from gas → GWP entries. CO2e is always 1.
func New(version string, values map[string]float64) (*Table, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("gwp table version is required")
	}
	t := &Table{version: version, values: make(map[string]float64, len(values)+1)}
	for gas, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, fmt.Errorf("gwp for %s must be positive, got %v", gas, v)
		}
		t.values[key(gas)] = v
	}
	t.values[key(CO2e)] = 1
	return t, nil
}

// WithOverrides returns a copy of t with entries replaced or added.
// An empty version keeps the current label.
func (t *Table) WithOverrides(version string, overrides map[string]float64) (*Table, error) {
	merged := make(map[string]float64, len(t.values)+len(overrides))
	for k, v := range t.values {
		merged[k] = v
	}
	for gas, v := range overrides {
		merged[key(gas)] = v
	}
	if version == "" {
		version = t.version
	}
	return New(version, merged)
}

// Version returns the table label used in calculation traces.
func (t *Table) Version() string { return t.version }

// Lookup returns the GWP multiplier for gas.
func (t *Table) Lookup(gas string) (float64, error) {
	k := key(gas)
	if k == "" {
		return 0, fmt.Errorf("%w: empty gas name", ErrUnknownGas)
	}
	v, ok := t.values[k]
	if !ok {
		return 0, fmt.Errorf("%w: %q (table %s)", ErrUnknownGas, gas, t.version)
	}
	return v, nil
}

// Gases returns the known gas keys in sorted order.
func (t *Table) Gases() []string {
	out := make([]string, 0, len(t.values))
	for k := range t.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeGas maps spelling variants to a canonical name:
// "co2-eq", "CO2 eq", "CO₂e" → "CO2e"; "ch4", "Methane" → "CH4"; "HFC134a" → "HFC-134A".
func NormalizeGas(gas string) string {
	k := key(gas)
	if k == "CO2E" {
		return CO2e
	}
	return k
}

var subscripts = strings.NewReplacer("₂", "2", "₃", "3", "₄", "4", "₆", "6")

// names maps the chemical names used by EFDB records to formulas.
var names = map[string]string{
	"CARBONDIOXIDE":       "CO2",
	"METHANE":             "CH4",
	"NITROUSOXIDE":        "N2O",
	"SULPHURHEXAFLUORIDE": "SF6",
	"SULFURHEXAFLUORIDE":  "SF6",
	"NITROGENTRIFLUORIDE": "NF3",
	"TETRAFLUOROMETHANE":  "CF4",
	"PERFLUOROMETHANE":    "CF4",
	"HEXAFLUOROETHANE":    "C2F6",
	"PERFLUOROETHANE":     "C2F6",
}

func key(gas string) string {
	g := strings.ToUpper(strings.TrimSpace(subscripts.Replace(gas)))
	g = strings.Join(strings.Fields(g), "")
	switch g {
	case "CO2E", "CO2-E", "CO2EQ", "CO2-EQ", "CO2EQUIVALENT", "CO2-EQUIVALENT", "CO2EQ.", "CO2-EQ.":
		return "CO2E"
	}
	if f, ok := names[g]; ok {
		return f
	}
	if strings.HasPrefix(g, "HFC") && !strings.HasPrefix(g, "HFC-") {
		g = "HFC-" + g[len("HFC"):]
	}
	return g
}
