package activity

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in    string
		value float64
		unit  string
	}{
		{"20 kg", 20, "kg"},
		{"20kg", 20, "kg"},
		{"purchase of 20 kg plastic bags", 20, "kg"},
		{"1,200 kWh of electricity", 1200, "kWh"},
		{"1.5 tonnes", 1.5, "t"},
		{"2,5 liters", 2.5, "L"},
		{"1.000,5 kg", 1000.5, "kg"},
		{"shipped 300 tonne km by rail", 300, "t·km"},
		{"2 trucks drove 100 km.", 100, "km"},
		{"(approx. 40 miles)", 40, "mi"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			q, err := ParseQuantity(tc.in)
			if err != nil {
				t.Fatalf("ParseQuantity(%q): %v", tc.in, err)
			}
			if math.Abs(q.Value()-tc.value) > 1e-9 {
				t.Errorf("value = %v, want %v", q.Value(), tc.value)
			}
			if q.UnitSymbol() != tc.unit {
				t.Errorf("unit = %q, want %q", q.UnitSymbol(), tc.unit)
			}
		})
	}
}

func TestParseQuantity_Unparsable(t *testing.T) {
	for _, in := range []string{"", "some plastic bags", "20 bags", "lots of kg"} {
		q, err := ParseQuantity(in)
		var uqe *domain.UnparsableQuantityError
		if !errors.As(err, &uqe) {
			t.Fatalf("ParseQuantity(%q) err = %v, want UnparsableQuantityError", in, err)
		}
		if !errors.Is(err, domain.ErrUnparsableQuantity) {
			t.Errorf("error does not unwrap to ErrUnparsableQuantity")
		}
		if q.Value() != 1 || q.UnitSymbol() != UnitUnspecified {
			t.Errorf("fallback = %s, want 1 unspecified", q)
		}
	}
}

func TestSplitQuantity_Remainder(t *testing.T) {
	q, rest, ok := SplitQuantity("20 km transport")
	if !ok {
		t.Fatal("expected a quantity")
	}
	if q.String() != "20 km" {
		t.Errorf("quantity = %q", q.String())
	}
	if rest != "transport" {
		t.Errorf("rest = %q, want transport", rest)
	}

	_, rest, ok = SplitQuantity("20kg plastic bags")
	if !ok || rest != "plastic bags" {
		t.Errorf("got (%q, %v), want (plastic bags, true)", rest, ok)
	}
}

func TestNewQuantity_Validation(t *testing.T) {
	kg := unit.MustParse("kg")
	if _, err := NewQuantity(-1, kg); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("negative: err = %v", err)
	}
	if _, err := NewQuantity(math.NaN(), kg); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("NaN: err = %v", err)
	}
	if _, err := NewQuantity(1, unit.Unit{}); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("zero unit: err = %v", err)
	}
	if _, err := NewQuantity(0, kg); err != nil {
		t.Errorf("zero quantity should be allowed: %v", err)
	}
}

func TestQuantity_To(t *testing.T) {
	q, _ := NewQuantity(2, unit.MustParse("t"))
	kg, err := q.To(unit.MustParse("kg"))
	if err != nil {
		t.Fatalf("To: %v", err)
	}
	if kg.Value() != 2000 {
		t.Errorf("2 t = %v kg", kg.Value())
	}
	if _, err := Unspecified().To(unit.MustParse("kg")); !errors.Is(err, unit.ErrIncompatibleUnits) {
		t.Errorf("unspecified conversion err = %v", err)
	}
}

func TestNewComponent(t *testing.T) {
	q, _ := NewQuantity(20, unit.MustParse("kg"))
	c, err := NewComponent("plastic bags", "", "", "", q)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	if c.SourceType() != SourceProduction {
		t.Errorf("default source type = %q", c.SourceType())
	}
	if c.Query() != "plastic bags" {
		t.Errorf("query defaults to name, got %q", c.Query())
	}
	if _, err := NewComponent("x", "transport", "", ""); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("no forms: err = %v", err)
	}
	if _, err := NewComponent("x", "transport", "", "", q, Unspecified()); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("mixed forms: err = %v", err)
	}
}

func TestCanonicalSourceType(t *testing.T) {
	tests := map[string]string{
		"purchased_electricity":  SourcePurchasedElectricity,
		"Stationary-Combustion":  SourceStationaryCombustion,
		"  mobile   combustion ": SourceMobileCombustion,
		"TRANSPORT":              SourceTransport,
		"":                       "",
	}
	for in, want := range tests {
		if got := CanonicalSourceType(in); got != want {
			t.Errorf("CanonicalSourceType(%q) = %q, want %q", in, got, want)
		}
	}

	q, _ := NewQuantity(100, unit.MustParse("kWh"))
	c, err := NewComponent("grid power", "purchased_electricity", "", "", q)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	if c.SourceType() != SourcePurchasedElectricity {
		t.Errorf("source type = %q", c.SourceType())
	}
}

func TestNew(t *testing.T) {
	q, _ := NewQuantity(20, unit.MustParse("kg"))
	c, _ := NewComponent("plastic bags", SourceProduction, "", "", q)
	a, err := New("  20 kg plastic bags ", q, "", []Component{c}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Description() != "20 kg plastic bags" {
		t.Errorf("description = %q", a.Description())
	}
	if !a.HasSource(SourceProduction) || a.HasSource(SourceDisposal) {
		t.Error("HasSource mismatch")
	}
	if _, err := New("", q, "", []Component{c}, nil); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("empty description: err = %v", err)
	}
	if _, err := New("x", q, "", nil, nil); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Errorf("no components: err = %v", err)
	}
}
