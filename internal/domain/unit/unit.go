// Package unit resolves activity and emission-factor units and converts
// quantities between units of the same physical dimension.
package unit

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrIncompatibleUnits signals a conversion between different physical dimensions.
var ErrIncompatibleUnits = errors.New("incompatible units")

// ErrUnknownUnit signals a unit symbol missing from the registry.
var ErrUnknownUnit = errors.New("unknown unit")

// Dimension holds exponents of the base quantities an activity can be measured in.
// Products such as tonne-kilometres combine exponents.
type Dimension struct {
	Mass   int8
	Length int8
	Energy int8
	Volume int8
	Count  int8
}

// Add returns the dimension of a product of two units.
func (d Dimension) Add(o Dimension) Dimension {
	return Dimension{
		Mass:   d.Mass + o.Mass,
		Length: d.Length + o.Length,
		Energy: d.Energy + o.Energy,
		Volume: d.Volume + o.Volume,
		Count:  d.Count + o.Count,
	}
}

// Name returns a readable dimension name for traces and assumptions.
func (d Dimension) Name() string {
	parts := make([]string, 0, 2)
	add := func(name string, exp int8) {
		switch {
		case exp == 1:
			parts = append(parts, name)
		case exp != 0:
			parts = append(parts, fmt.Sprintf("%s^%d", name, exp))
		}
	}
	add("mass", d.Mass)
	add("length", d.Length)
	add("energy", d.Energy)
	add("volume", d.Volume)
	add("count", d.Count)
	if len(parts) == 0 {
		return "dimensionless"
	}
	return strings.Join(parts, "·")
}

// Base dimensions.
var (
	Mass   = Dimension{Mass: 1}
	Length = Dimension{Length: 1}
	Energy = Dimension{Energy: 1}
	Volume = Dimension{Volume: 1}
	Count  = Dimension{Count: 1}
)

// Unit is a resolved unit: canonical symbol, scale to the dimension's base unit
// (kg, km, kWh, L, item) and its dimension.
type Unit struct {
	symbol string
	scale  float64
	dim    Dimension
}

// Symbol returns the canonical symbol ("kg", "t·km").
func (u Unit) Symbol() string { return u.symbol }

// Scale returns the multiplier to the base unit of the dimension.
func (u Unit) Scale() float64 { return u.scale }

// Dimension returns the physical dimension.
func (u Unit) Dimension() Dimension { return u.dim }

// IsZero reports whether u is the zero Unit.
func (u Unit) IsZero() bool { return u.symbol == "" }

func (u Unit) String() string { return u.symbol }

// Compatible reports whether values in u can be converted to o.
func (u Unit) Compatible(o Unit) bool { return u.dim == o.dim }

// Mul returns the product unit u·o.
func (u Unit) Mul(o Unit) Unit {
	return Unit{symbol: u.symbol + "·" + o.symbol, scale: u.scale * o.scale, dim: u.dim.Add(o.dim)}
}

// Convert expresses value given in from as a value in to.
func Convert(value float64, from, to Unit) (float64, error) {
	if from.dim != to.dim {
		return 0, fmt.Errorf("%w: %s (%s) -> %s (%s)",
			ErrIncompatibleUnits, from.symbol, from.dim.Name(), to.symbol, to.dim.Name())
	}
	out := value * from.scale / to.scale
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("conversion %s -> %s overflowed", from.symbol, to.symbol)
	}
	return out, nil
}

// MustParse parses a unit or panics. Intended for package-level defaults and tests.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Parse resolves a unit expression: a registered alias ("kilograms", "tkm")
// or a product of aliases joined by "*", "·" or "-" ("t*km", "tonne-km").
func Parse(s string) (Unit, error) {
	key := normalizeKey(s)
	if key == "" {
		return Unit{}, fmt.Errorf("%w: empty", ErrUnknownUnit)
	}
	if u, ok := registry[key]; ok {
		return u, nil
	}
	for _, sep := range []string{"*", "·", "-", " "} {
		if !strings.Contains(key, sep) {
			continue
		}
		parts := strings.Split(key, sep)
		var out Unit
		ok := true
		for i, p := range parts {
			pu, found := registry[strings.TrimSpace(p)]
			if !found {
				ok = false
				break
			}
			if i == 0 {
				out = pu
				continue
			}
			out = out.Mul(pu)
		}
		if ok {
			return out, nil
		}
	}
	return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// ParsePrefix resolves the longest unit expression formed by the leading tokens
// (at most three) and reports how many tokens it consumed.
func ParsePrefix(tokens []string) (Unit, int, bool) {
	n := len(tokens)
	if n > 3 {
		n = 3
	}
	for ; n > 0; n-- {
		if u, err := Parse(strings.Join(tokens[:n], " ")); err == nil {
			return u, n, true
		}
	}
	return Unit{}, 0, false
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "³", "3")
	s = strings.Join(strings.Fields(s), " ")
	return s
}
