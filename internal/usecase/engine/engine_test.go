package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/calculate"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

// --- Mocks ---

type mockEmbedder struct {
	vec []float32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3, Provider: "mock"}, nil
}

func catalogOf(t *testing.T, version string, factors ...factor.EmissionFactor) *factor.Catalog {
	t.Helper()
	c, err := factor.NewCatalog(version, factors)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func ef(id, unitText string, value float64, vec ...float32) factor.EmissionFactor {
	return factor.Reconstruct(id, "", "CO2e", id, value, unitText, vec, factor.Provenance{Provider: "EFDB"})
}

// --- Tests ---

func TestHolder_CurrentBeforeLoad(t *testing.T) {
	h := NewHolder(NewBuilder(&mockEmbedder{}, Config{}), nil, nil)
	if _, err := h.Current(); !errors.Is(err, domain.ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
	if v, n := h.CatalogStatus(); v != "" || n != 0 {
		t.Errorf("status = %q/%d", v, n)
	}
}

func TestHolder_ReloadSwapsSnapshot(t *testing.T) {
	catalogs := []*factor.Catalog{
		catalogOf(t, "v1", ef("steel", "kg CO2e/kg", 2, 1, 0)),
		catalogOf(t, "v2", ef("steel", "kg CO2e/kg", 2, 1, 0), ef("glass", "kg CO2e/kg", 1, 0, 1)),
	}
	calls := 0
	load := func(context.Context) (*factor.Catalog, error) {
		c := catalogs[calls]
		calls++
		return c, nil
	}
	h := NewHolder(NewBuilder(&mockEmbedder{vec: []float32{1, 0}}, Config{}), load, nil)

	first, err := h.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, err := h.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	cur, err := h.Current()
	if err != nil {
		t.Fatal(err)
	}
	if cur == first || cur.Catalog.Version() != "v2" {
		t.Errorf("current version = %s", cur.Catalog.Version())
	}
	if first.Catalog.Len() != 1 {
		t.Error("previous snapshot must stay intact")
	}
	if v, n := h.CatalogStatus(); v != "v2" || n != 2 {
		t.Errorf("status = %q/%d", v, n)
	}
}

func TestHolder_FailedReloadKeepsPrevious(t *testing.T) {
	fail := false
	load := func(context.Context) (*factor.Catalog, error) {
		if fail {
			return nil, errors.New("disk gone")
		}
		return catalogOf(t, "v1", ef("steel", "kg CO2e/kg", 2, 1, 0)), nil
	}
	h := NewHolder(NewBuilder(&mockEmbedder{vec: []float32{1, 0}}, Config{}), load, nil)
	if _, err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	fail = true
	if _, err := h.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if v, _ := h.CatalogStatus(); v != "v1" {
		t.Errorf("version = %q, want v1", v)
	}
}

func TestBuilder_EmptyCatalog(t *testing.T) {
	b := NewBuilder(&mockEmbedder{}, Config{})
	_, err := b.Build(catalogOf(t, "empty"))
	if !errors.Is(err, domain.ErrIndexBuild) {
		t.Fatalf("expected ErrIndexBuild, got %v", err)
	}
}

func TestBuilder_DefaultDisposalNotInCatalog(t *testing.T) {
	b := NewBuilder(&mockEmbedder{}, Config{Calculation: calculate.Config{
		Disposal: calculate.DisposalDefault{Enabled: true, FactorID: "landfill"},
	}})
	if _, err := b.Build(catalogOf(t, "v1", ef("steel", "kg CO2e/kg", 2, 1, 0))); err == nil {
		t.Fatal("expected error for missing disposal factor")
	}
}

func TestEngine_SearchAndCalculate(t *testing.T) {
	b := NewBuilder(&mockEmbedder{vec: []float32{1, 0}}, Config{})
	e, err := b.Build(catalogOf(t, "v1",
		ef("steel", "kg CO2e/kg", 2, 1, 0),
		ef("glass", "kg CO2e/kg", 1, 0, 1),
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	req, err := request.New("steel", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Search.Search(context.Background(), &req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if top, ok := res.Top(); !ok || top.Factor().ID() != "steel" {
		t.Fatalf("top hit = %+v", top)
	}

	rep, err := e.Calculate.Calculate(context.Background(), normalize.Input{Description: "10 kg steel"})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if rep.Total() != 20 {
		t.Errorf("total = %v, want 20", rep.Total())
	}
}
