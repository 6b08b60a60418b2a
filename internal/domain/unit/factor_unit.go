package unit

import (
	"fmt"
	"strings"
)

// FactorUnit is a parsed emission-factor unit such as "kg CO2e/kg" or "t CH4/TJ":
// an emitted mass of a gas per unit of activity.
type FactorUnit struct {
	raw     string
	emitted Unit
	gas     string
	per     Unit
}

// Raw returns the unit string as declared in the catalog.
func (f FactorUnit) Raw() string { return f.raw }

// Emitted returns the mass unit of the numerator.
func (f FactorUnit) Emitted() Unit { return f.emitted }

// Gas returns the gas named in the numerator ("CO2e", "CH4"); empty if absent.
func (f FactorUnit) Gas() string { return f.gas }

// Per returns the activity unit of the denominator.
func (f FactorUnit) Per() Unit { return f.per }

// ParseFactorUnit splits "<mass> [gas] / <activity unit>" (or "... per ...").
// Trailing qualifiers in the denominator ("kg product") are ignored.
func ParseFactorUnit(s string) (FactorUnit, error) {
	raw := strings.TrimSpace(s)
	num, den, ok := splitRatio(raw)
	if !ok {
		return FactorUnit{}, fmt.Errorf("%w: factor unit %q has no denominator", ErrUnknownUnit, s)
	}

	numTokens := strings.Fields(num)
	emitted, n, found := ParsePrefix(numTokens)
	if !found || emitted.Dimension() != Mass {
		return FactorUnit{}, fmt.Errorf("%w: factor unit %q must emit a mass", ErrUnknownUnit, s)
	}
	gas := strings.Join(numTokens[n:], " ")

	denTokens := strings.Fields(strings.TrimPrefix(strings.TrimSpace(den), "of "))
	per, _, found := ParsePrefix(denTokens)
	if !found {
		return FactorUnit{}, fmt.Errorf("%w: factor unit %q has unknown denominator %q", ErrUnknownUnit, s, den)
	}

	return FactorUnit{raw: raw, emitted: emitted, gas: gas, per: per}, nil
}

func splitRatio(s string) (string, string, bool) {
	if i := strings.LastIndex(s, "/"); i > 0 && i < len(s)-1 {
		return s[:i], s[i+1:], true
	}
	lower := strings.ToLower(s)
	if i := strings.LastIndex(lower, " per "); i > 0 {
		return s[:i], s[i+len(" per "):], true
	}
	return "", "", false
}
