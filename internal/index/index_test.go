package index

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
)

func mkFactor(id string, emb ...float32) factor.EmissionFactor {
	return factor.Reconstruct(id, "1.A", "CO2", "factor "+id, 1, "kg CO2e/kg", emb, factor.Provenance{})
}

func mkCatalog(t *testing.T, factors ...factor.EmissionFactor) *factor.Catalog {
	t.Helper()
	c, err := factor.NewCatalog("test", factors)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestBuild_NormalizesRows(t *testing.T) {
	idx, err := Build(mkCatalog(t, mkFactor("a", 3, 4), mkFactor("b", 0, 10)))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < idx.Len(); i++ {
		if n := domain.L2Norm(idx.Row(i)); math.Abs(n-1) > 1e-6 {
			t.Errorf("row %d norm = %v", i, n)
		}
	}
	if idx.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d", idx.Dimensions())
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog *factor.Catalog
		id      string
	}{
		{"empty", mkCatalog(t), ""},
		{"inconsistent dims", mkCatalog(t, mkFactor("a", 1, 0), mkFactor("b", 1, 0, 0)), "b"},
		{"zero norm", mkCatalog(t, mkFactor("a", 1, 0), mkFactor("z", 0, 0)), "z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.catalog)
			var ibe *domain.IndexBuildError
			if !errors.As(err, &ibe) {
				t.Fatalf("expected IndexBuildError, got %v", err)
			}
			if ibe.FactorID != tc.id {
				t.Errorf("FactorID = %q, want %q", ibe.FactorID, tc.id)
			}
		})
	}
	if _, err := Build(nil); !errors.Is(err, domain.ErrIndexBuild) {
		t.Errorf("nil catalog: %v", err)
	}
}

func TestQuery_OrderAndTies(t *testing.T) {
	idx, err := Build(mkCatalog(t,
		mkFactor("far", 0, 1),
		mkFactor("tie1", 1, 1),
		mkFactor("best", 1, 0),
		mkFactor("tie2", 2, 2),
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := idx.Query([]float32{1, 0.2}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"best", "tie1", "tie2", "far"}
	if len(hits) != len(want) {
		t.Fatalf("len = %d, want %d", len(hits), len(want))
	}
	for i, h := range hits {
		if h.Factor().ID() != want[i] {
			t.Errorf("hit[%d] = %s, want %s", i, h.Factor().ID(), want[i])
		}
	}
}

func TestQuery_K(t *testing.T) {
	idx, _ := Build(mkCatalog(t, mkFactor("a", 1, 0), mkFactor("b", 0, 1), mkFactor("c", 1, 1)))

	hits, err := idx.Query([]float32{1, 0}, 1)
	if err != nil || len(hits) != 1 || hits[0].Factor().ID() != "a" {
		t.Fatalf("k=1: %v %v", hits, err)
	}
	if math.Abs(hits[0].Score()-1) > 1e-6 {
		t.Errorf("self score = %v", hits[0].Score())
	}
	hits, _ = idx.Query([]float32{1, 0}, 3)
	if len(hits) != 3 {
		t.Errorf("k=len: %d", len(hits))
	}
	if _, err := idx.Query([]float32{1, 0}, 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("k=0: %v", err)
	}
	if _, err := idx.Query([]float32{1, 0, 0}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("dim mismatch: %v", err)
	}
	if _, err := idx.Query([]float32{0, 0}, 1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("zero query: %v", err)
	}
}

func TestQuery_RandomCatalogProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n, dim = 200, 16
	factors := make([]factor.EmissionFactor, n)
	for i := range factors {
		emb := make([]float32, dim)
		for j := range emb {
			// coarse values produce exact ties
			emb[j] = float32(rng.Intn(3) - 1)
		}
		emb[0] += 5
		factors[i] = mkFactor(string(rune('A'+i%26))+string(rune('a'+i/26)), emb...)
	}
	c := mkCatalog(t, factors...)
	idx, err := Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pos := make(map[string]int, n)
	for i := 0; i < c.Len(); i++ {
		pos[c.At(i).ID()] = i
	}

	q := make([]float32, dim)
	for j := range q {
		q[j] = rng.Float32() - 0.5
	}
	hits, err := idx.Query(q, n+10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != n {
		t.Fatalf("len = %d, want %d", len(hits), n)
	}
	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		if cur.Score() > prev.Score() {
			t.Fatalf("order violated at %d: %v > %v", i, cur.Score(), prev.Score())
		}
		if cur.Score() == prev.Score() && pos[cur.Factor().ID()] < pos[prev.Factor().ID()] {
			t.Fatalf("tie at %d not in insertion order", i)
		}
	}

	again, _ := idx.Query(q, n+10)
	for i := range hits {
		if again[i].Factor().ID() != hits[i].Factor().ID() || again[i].Score() != hits[i].Score() {
			t.Fatalf("query not idempotent at %d", i)
		}
	}
}
