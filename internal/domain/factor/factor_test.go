package factor

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	emb := []float32{1, 0}
	f, err := New(" 42 ", "2.A.4", "CO2", "Polyethylene production", 1.5, "kg CO2e/kg", emb,
		Provenance{Source: "IPCC 2006", Provider: "EFDB", Region: "Global"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.ID() != "42" {
		t.Errorf("id = %q", f.ID())
	}
	emb[0] = 9
	if f.Embedding()[0] != 1 {
		t.Error("embedding aliases caller slice")
	}
	if f.Dimensions() != 2 {
		t.Errorf("dimensions = %d", f.Dimensions())
	}
}

func TestNew_Invalid(t *testing.T) {
	emb := []float32{1}
	tests := []struct {
		name  string
		id    string
		value float64
		unit  string
		emb   []float32
	}{
		{"empty id", "", 1, "kg CO2e/kg", emb},
		{"negative value", "1", -1, "kg CO2e/kg", emb},
		{"NaN value", "1", math.NaN(), "kg CO2e/kg", emb},
		{"empty unit", "1", 1, " ", emb},
		{"no embedding", "1", 1, "kg CO2e/kg", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, "", "", "", tc.value, tc.unit, tc.emb, Provenance{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProvenance_Label(t *testing.T) {
	tests := []struct {
		p    Provenance
		want string
	}{
		{Provenance{Provider: "EFDB", Source: "IPCC 2006"}, "EFDB: IPCC 2006"},
		{Provenance{Provider: "EFDB", Source: "EFDB"}, "EFDB"},
		{Provenance{Source: "DEFRA 2023"}, "DEFRA 2023"},
		{Provenance{}, ""},
	}
	for _, tc := range tests {
		if got := tc.p.Label(); got != tc.want {
			t.Errorf("Label(%+v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestNewCatalog(t *testing.T) {
	a := Reconstruct("a", "", "", "", 1, "kg CO2e/kg", []float32{1}, Provenance{})
	b := Reconstruct("b", "", "", "", 2, "kg CO2e/kg", []float32{1}, Provenance{})

	c, err := NewCatalog("v1", []EmissionFactor{a, b})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if c.Len() != 2 || c.At(1).ID() != "b" || c.Version() != "v1" {
		t.Errorf("unexpected catalog: len=%d at1=%s version=%s", c.Len(), c.At(1).ID(), c.Version())
	}
	if got, ok := c.Get("a"); !ok || got.Value() != 1 {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}
	if _, ok := c.Get("zzz"); ok {
		t.Error("Get(zzz) should miss")
	}

	list := c.Factors()
	list[0] = b
	if c.At(0).ID() != "a" {
		t.Error("Factors() leaked internal slice")
	}
}

func TestNewCatalog_DuplicateID(t *testing.T) {
	a := Reconstruct("a", "", "", "", 1, "kg CO2e/kg", []float32{1}, Provenance{})
	_, err := NewCatalog("v1", []EmissionFactor{a, a})
	var ibe *domain.IndexBuildError
	if !errors.As(err, &ibe) {
		t.Fatalf("expected IndexBuildError, got %v", err)
	}
	if ibe.FactorID != "a" {
		t.Errorf("FactorID = %q", ibe.FactorID)
	}
	if !errors.Is(err, domain.ErrIndexBuild) {
		t.Error("error does not unwrap to ErrIndexBuild")
	}
}
