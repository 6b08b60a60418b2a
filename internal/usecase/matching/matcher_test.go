package matching

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
)

// --- Mocks ---

type mockSearcher struct {
	hits    []result.Hit
	err     error
	lastReq *request.Request
}

func (m *mockSearcher) Search(_ context.Context, req *request.Request) (result.Result, error) {
	m.lastReq = req
	if m.err != nil {
		return result.Result{}, m.err
	}
	return result.New(m.hits, nil), nil
}

func hit(id, gas, unitText string, value, score float64) result.Hit {
	f := factor.Reconstruct(id, "", gas, id+" factor", value, unitText, []float32{1}, factor.Provenance{Provider: "EFDB"})
	return result.NewHit(f, score)
}

func qty(t *testing.T, v float64, u string) activity.Quantity {
	t.Helper()
	q, err := activity.NewQuantity(v, unit.MustParse(u))
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func component(t *testing.T, name, hint string, forms ...activity.Quantity) activity.Component {
	t.Helper()
	c, err := activity.NewComponent(name, "", "", hint, forms...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// --- Tests ---

func TestMatch_SelectsFirstCompatible(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{
		hit("elec", "CO2", "kg CO2/kWh", 0.4, 0.91),
		hit("pe", "CO2e", "kg CO2e/kg", 1.5, 0.88),
		hit("pp", "CO2e", "kg CO2e/t", 1700, 0.80),
	}}
	m := New(s, nil, Config{})

	got, err := m.Match(context.Background(), component(t, "plastic bags", "", qty(t, 20, "kg")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Primary.Factor.ID() != "pe" {
		t.Errorf("primary = %s, want pe", got.Primary.Factor.ID())
	}
	if got.Primary.Quantity.String() != "20 kg" || got.Primary.Converted() {
		t.Errorf("quantity = %s", got.Primary.Quantity)
	}
	if len(got.Alternates) != 1 || got.Alternates[0].Factor.ID() != "pp" {
		t.Fatalf("alternates = %d", len(got.Alternates))
	}
	if alt := got.Alternates[0]; math.Abs(alt.Quantity.Value()-0.02) > 1e-12 || !alt.Converted() {
		t.Errorf("alternate quantity = %s, want 0.02 t", alt.Quantity)
	}
	if got.LowConfidence || len(got.Assumptions) != 0 {
		t.Errorf("unexpected assumptions %v", got.Assumptions)
	}
	if s.lastReq.TopK() != DefaultCandidates {
		t.Errorf("top_k = %d, want %d", s.lastReq.TopK(), DefaultCandidates)
	}
}

func TestMatch_IncompatibleEverywhere(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{
		hit("pe", "CO2e", "kg CO2e/kg", 1.5, 0.9),
		hit("steel", "CO2e", "kg CO2e/t", 1900, 0.7),
	}}
	m := New(s, nil, Config{})

	_, err := m.Match(context.Background(), component(t, "solvent", "", qty(t, 5, "liters")))
	var nm *domain.NoMatchingFactorError
	if !errors.As(err, &nm) {
		t.Fatalf("expected NoMatchingFactorError, got %v", err)
	}
	if nm.Process != "solvent" || !strings.Contains(nm.Reason, "5 L") {
		t.Errorf("error = %+v", nm)
	}
}

func TestMatch_EmptyCandidates(t *testing.T) {
	m := New(&mockSearcher{}, nil, Config{})
	_, err := m.Match(context.Background(), component(t, "steel", "2.C", qty(t, 1, "t")))
	if !errors.Is(err, domain.ErrNoMatchingFactor) {
		t.Fatalf("expected ErrNoMatchingFactor, got %v", err)
	}
	if !strings.Contains(err.Error(), `"2.C"`) {
		t.Errorf("reason should name the category: %v", err)
	}
}

func TestMatch_LowConfidence(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{hit("pe", "CO2e", "kg CO2e/kg", 1.5, 0.31)}}
	m := New(s, nil, Config{MinSimilarity: Threshold(0.6)})

	got, err := m.Match(context.Background(), component(t, "widgets", "", qty(t, 2, "kg")))
	if err != nil {
		t.Fatal(err)
	}
	if !got.LowConfidence {
		t.Error("expected low confidence")
	}
	if len(got.Assumptions) != 1 || !strings.Contains(got.Assumptions[0], "0.31") {
		t.Errorf("assumptions = %v", got.Assumptions)
	}
}

func TestMatch_ZeroThresholdNeverLowConfidence(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{hit("pe", "CO2e", "kg CO2e/kg", 1.5, 0.01)}}

	got, err := New(s, nil, Config{MinSimilarity: Threshold(0)}).
		Match(context.Background(), component(t, "widgets", "", qty(t, 2, "kg")))
	if err != nil {
		t.Fatal(err)
	}
	if got.LowConfidence || len(got.Assumptions) != 0 {
		t.Errorf("threshold 0: low=%v assumptions=%v", got.LowConfidence, got.Assumptions)
	}

	got, err = New(s, nil, Config{}).
		Match(context.Background(), component(t, "widgets", "", qty(t, 2, "kg")))
	if err != nil {
		t.Fatal(err)
	}
	if !got.LowConfidence {
		t.Error("unset threshold should fall back to the default and flag 0.01")
	}
}

func TestMatch_UnspecifiedQuantity(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{hit("elec", "CO2", "kg CO2/kWh", 0.4, 0.9)}}
	m := New(s, nil, Config{})

	got, err := m.Match(context.Background(), component(t, "office power", "", activity.Unspecified()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Primary.Quantity.String() != "1 kWh" {
		t.Errorf("quantity = %s, want 1 kWh", got.Primary.Quantity)
	}
	if len(got.Assumptions) != 1 || !strings.Contains(got.Assumptions[0], "assumed 1 kWh") {
		t.Errorf("assumptions = %v", got.Assumptions)
	}
}

func TestMatch_DiscardsUnknownGasAndUnit(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{
		hit("sf6", "Sulphur Hexafluoride", "Fraction of SF6/year", 2, 0.95),
		hit("mystery", "XYZ-9", "kg XYZ-9/kg", 3, 0.9),
		hit("ch4", "CH4", "kg/kg", 2, 0.8),
	}}
	m := New(s, nil, Config{})

	got, err := m.Match(context.Background(), component(t, "feed", "", qty(t, 1, "kg")))
	if err != nil {
		t.Fatal(err)
	}
	p := got.Primary
	if p.Factor.ID() != "ch4" || p.Gas != "CH4" || p.GWP != 27 {
		t.Errorf("primary = %s gas=%s gwp=%v", p.Factor.ID(), p.Gas, p.GWP)
	}
}

func TestMatch_TransportFormFallback(t *testing.T) {
	tkm, km := qty(t, 0.4, "tkm"), qty(t, 20, "km")
	s := &mockSearcher{hits: []result.Hit{hit("van", "CO2e", "kg CO2e/km", 0.25, 0.8)}}
	m := New(s, nil, Config{})

	got, err := m.Match(context.Background(), component(t, "transport", "", tkm, km))
	if err != nil {
		t.Fatal(err)
	}
	if got.Primary.From.String() != "20 km" || got.Primary.Quantity.String() != "20 km" {
		t.Errorf("form = %s -> %s", got.Primary.From, got.Primary.Quantity)
	}

	s.hits = []result.Hit{hit("hgv", "CO2e", "kg CO2e/tkm", 0.1, 0.8)}
	got, err = m.Match(context.Background(), component(t, "transport", "", tkm, km))
	if err != nil {
		t.Fatal(err)
	}
	if got.Primary.From.UnitSymbol() != "t·km" {
		t.Errorf("preferred freight form not used: %s", got.Primary.From)
	}
}

func TestMatch_SearchErrorPropagates(t *testing.T) {
	m := New(&mockSearcher{err: domain.ErrEmbedding}, nil, Config{})
	_, err := m.Match(context.Background(), component(t, "x", "", qty(t, 1, "kg")))
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if errors.Is(err, domain.ErrNoMatchingFactor) {
		t.Error("embedding failure must not read as a missing factor")
	}
}

func TestMatch_PassesCategoryHint(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{hit("pe", "CO2e", "kg CO2e/kg", 1.5, 0.9)}}
	m := New(s, nil, Config{Candidates: 3})
	if _, err := m.Match(context.Background(), component(t, "bags", "2.B", qty(t, 1, "kg"))); err != nil {
		t.Fatal(err)
	}
	if s.lastReq.Category() != "2.B" || s.lastReq.TopK() != 3 {
		t.Errorf("request = %q/%d", s.lastReq.Category(), s.lastReq.TopK())
	}
}

func TestResolve(t *testing.T) {
	m := New(&mockSearcher{}, nil, Config{})
	f := factor.Reconstruct("landfill", "5.A", "CO2e", "Landfill", 0.5, "kg CO2e/kg", nil, factor.Provenance{})

	cand, err := m.Resolve(component(t, "disposal", "", qty(t, 2, "t")), f)
	if err != nil {
		t.Fatal(err)
	}
	if cand.Quantity.String() != "2000 kg" {
		t.Errorf("quantity = %s", cand.Quantity)
	}
	if _, err := m.Resolve(component(t, "disposal", "", qty(t, 2, "kWh")), f); !errors.Is(err, unit.ErrIncompatibleUnits) {
		t.Errorf("expected ErrIncompatibleUnits, got %v", err)
	}
}
