package activity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
)

// UnitUnspecified is reported for quantities that could not be parsed.
const UnitUnspecified = "unspecified"

// Quantity is a non-negative amount in a resolved unit.
// The zero unit means "unspecified": the amount is an assumed 1.
type Quantity struct {
	value float64
	unit  unit.Unit
}

// NewQuantity validates value and builds a quantity.
func NewQuantity(value float64, u unit.Unit) (Quantity, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, fmt.Errorf("%w: quantity must be finite", domain.ErrInvalidActivity)
	}
	if value < 0 {
		return Quantity{}, fmt.Errorf("%w: quantity must be non-negative, got %v", domain.ErrInvalidActivity, value)
	}
	if u.IsZero() {
		return Quantity{}, fmt.Errorf("%w: unit is required", domain.ErrInvalidActivity)
	}
	return Quantity{value: value, unit: u}, nil
}

// Unspecified returns the placeholder quantity used when nothing could be parsed.
func Unspecified() Quantity { return Quantity{value: 1} }

// Value returns the amount.
func (q Quantity) Value() float64 { return q.value }

// Unit returns the resolved unit; zero when unspecified.
func (q Quantity) Unit() unit.Unit { return q.unit }

// IsUnspecified reports whether the unit is unknown.
func (q Quantity) IsUnspecified() bool { return q.unit.IsZero() }

// UnitSymbol returns the unit symbol or UnitUnspecified.
func (q Quantity) UnitSymbol() string {
	if q.IsUnspecified() {
		return UnitUnspecified
	}
	return q.unit.Symbol()
}

func (q Quantity) String() string {
	return FormatNumber(q.value) + " " + q.UnitSymbol()
}

// To converts q into u.
func (q Quantity) To(u unit.Unit) (Quantity, error) {
	if q.IsUnspecified() {
		return Quantity{}, fmt.Errorf("%w: %s -> %s", unit.ErrIncompatibleUnits, UnitUnspecified, u.Symbol())
	}
	v, err := unit.Convert(q.value, q.unit, u)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: v, unit: u}, nil
}

// FormatNumber renders v without trailing zeros ("30", "0.4", "1.5e-07").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

var numberToken = regexp.MustCompile(`^([0-9][0-9.,]*)(.*)$`)

var quantityCleaner = strings.NewReplacer("(", " ", ")", " ", ":", " ", ";", " ", "~", " ", "≈", " ")

// ParseQuantity returns the first "<number> <unit>" pair in text whose unit
// is known. Units may span up to three words ("tonne km") or be attached to
// the number ("20kg").
func ParseQuantity(text string) (Quantity, error) {
	q, _, ok := SplitQuantity(text)
	if !ok {
		return Unspecified(), &domain.UnparsableQuantityError{Input: text}
	}
	return q, nil
}

// SplitQuantity is ParseQuantity that also returns text with the matched
// quantity removed.
func SplitQuantity(text string) (Quantity, string, bool) {
	tokens := strings.Fields(quantityCleaner.Replace(text))
	for i, tok := range tokens {
		m := numberToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		value, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		rest := tokens[i+1:]
		attached := strings.TrimSpace(m[2])
		if attached != "" {
			rest = append([]string{attached}, rest...)
		}
		u, n, found := unit.ParsePrefix(trimTrailingPunct(rest))
		if !found {
			continue
		}
		q, err := NewQuantity(value, u)
		if err != nil {
			continue
		}
		consumed := n
		if attached != "" {
			consumed--
		}
		remaining := make([]string, 0, len(tokens))
		remaining = append(remaining, tokens[:i]...)
		remaining = append(remaining, tokens[i+1+consumed:]...)
		return q, strings.Join(remaining, " "), true
	}
	return Quantity{}, strings.Join(tokens, " "), false
}

// trimTrailingPunct strips sentence punctuation from the unit candidates only.
func trimTrailingPunct(tokens []string) []string {
	n := len(tokens)
	if n > 3 {
		n = 3
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = strings.TrimRight(tokens[i], ".,!?")
	}
	return out
}

var (
	thousandsComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	thousandsDot   = regexp.MustCompile(`^\d{1,3}(\.\d{3}){2,}$`)
)

// parseNumber accepts "20", "1.5", "1,000", "1,000.5", "1.000,5" and "1,5".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return 0, false
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if thousandsComma.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			return 0, false
		}
	case thousandsDot.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
