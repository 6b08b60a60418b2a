package search

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/index"
)

// --- Mocks ---

type mockEmbedder struct {
	mu    sync.Mutex
	vecs  map[string][]float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec, ok := m.vecs[text]
	if !ok {
		vec = []float32{1, 0, 0}
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 3}, nil
}

func mustFactor(t *testing.T, id, category string, vec ...float32) factor.EmissionFactor {
	t.Helper()
	f, err := factor.New(id, category, "CO2e", id+" description", 1, "kg CO2e/kg", vec, factor.Provenance{})
	if err != nil {
		t.Fatalf("factor %s: %v", id, err)
	}
	return f
}

func buildIndex(t *testing.T, factors ...factor.EmissionFactor) *index.Index {
	t.Helper()
	cat, err := factor.NewCatalog("test", factors)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	idx, err := index.Build(cat)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return idx
}

func newRequest(t *testing.T, query string, topK int, category string) *request.Request {
	t.Helper()
	req, err := request.New(query, topK, category)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return &req
}

func testIndex(t *testing.T) *index.Index {
	return buildIndex(t,
		mustFactor(t, "steel", "2.C.1", 0.9, 0.1, 0),
		mustFactor(t, "pe", "2.B.8", 1, 0, 0),
		mustFactor(t, "diesel", "1.A.3.b", 0, 1, 0),
		mustFactor(t, "grid", "1.A.1", 0, 0, 1),
	)
}

// --- Tests ---

func TestSearch_RanksBySimilarity(t *testing.T) {
	emb := &mockEmbedder{vecs: map[string][]float32{"plastic": {2, 0, 0}}}
	svc := New(testIndex(t), emb)

	res, err := svc.Search(context.Background(), newRequest(t, "plastic", 2, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Len() != 2 {
		t.Fatalf("expected 2 hits, got %d", res.Len())
	}
	hits := res.Hits()
	if hits[0].Factor().ID() != "pe" || hits[1].Factor().ID() != "steel" {
		t.Errorf("order = [%s %s], want [pe steel]", hits[0].Factor().ID(), hits[1].Factor().ID())
	}
	if math.Abs(hits[0].Score()-1) > 1e-6 {
		t.Errorf("top score = %v, want 1", hits[0].Score())
	}

	qv := res.QueryVector()
	if math.Abs(domain.L2Norm(qv)-1) > 1e-6 {
		t.Errorf("query vector not normalized: norm %v", domain.L2Norm(qv))
	}
	if emb.calls != 1 {
		t.Errorf("embed calls = %d, want 1", emb.calls)
	}
}

func TestSearch_TopKLargerThanCatalog(t *testing.T) {
	svc := New(testIndex(t), &mockEmbedder{})
	res, err := svc.Search(context.Background(), newRequest(t, "anything", 50, ""))
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 4 {
		t.Errorf("expected all 4 factors, got %d", res.Len())
	}
}

func TestSearch_CategoryFilterAfterRanking(t *testing.T) {
	emb := &mockEmbedder{vecs: map[string][]float32{"fuel": {0.2, 1, 0.3}}}
	svc := New(testIndex(t), emb)

	res, err := svc.Search(context.Background(), newRequest(t, "fuel", 1, "1.A"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 1 {
		t.Fatalf("expected 1 hit, got %d", res.Len())
	}
	if id := res.Hits()[0].Factor().ID(); id != "diesel" {
		t.Errorf("top filtered hit = %s, want diesel", id)
	}

	// Filter excluding the globally best factor still returns the best within the category.
	res, err = svc.Search(context.Background(), newRequest(t, "fuel", 5, "1.a.1"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 1 || res.Hits()[0].Factor().ID() != "grid" {
		t.Errorf("unexpected hits for 1.a.1: %d", res.Len())
	}
}

func TestSearch_CategoryWithoutMatches(t *testing.T) {
	svc := New(testIndex(t), &mockEmbedder{})
	res, err := svc.Search(context.Background(), newRequest(t, "x", 5, "4.D"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 0 {
		t.Errorf("expected no hits, got %d", res.Len())
	}
}

func TestSearch_EmptyCatalog(t *testing.T) {
	emb := &mockEmbedder{}
	svc := New(nil, emb)
	_, err := svc.Search(context.Background(), newRequest(t, "x", 5, ""))
	if !errors.Is(err, domain.ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called without a catalog")
	}
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	svc := New(testIndex(t), &mockEmbedder{err: domain.ErrEmbedding})
	_, err := svc.Search(context.Background(), newRequest(t, "x", 5, ""))
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestSearch_DimensionMismatchIsEmbeddingError(t *testing.T) {
	emb := &mockEmbedder{vecs: map[string][]float32{"x": {1, 0}}}
	svc := New(testIndex(t), emb)
	_, err := svc.Search(context.Background(), newRequest(t, "x", 5, ""))
	if !errors.Is(err, domain.ErrEmbedding) || !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrEmbedding + ErrVectorDimMismatch, got %v", err)
	}
}

func TestSearch_ZeroVector(t *testing.T) {
	emb := &mockEmbedder{vecs: map[string][]float32{"x": {0, 0, 0}}}
	svc := New(testIndex(t), emb)
	if _, err := svc.Search(context.Background(), newRequest(t, "x", 5, "")); !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	svc := New(testIndex(t), &mockEmbedder{vecs: map[string][]float32{"q": {0.3, 0.3, 0.3}}})
	req := newRequest(t, "q", 4, "")

	first, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := svc.Search(context.Background(), req)
			if err != nil {
				t.Error(err)
				return
			}
			for i, h := range again.Hits() {
				if h.Factor().ID() != first.Hits()[i].Factor().ID() || h.Score() != first.Hits()[i].Score() {
					t.Errorf("hit %d differs between identical searches", i)
				}
			}
		}()
	}
	wg.Wait()
}

func TestSearchStatus(t *testing.T) {
	tests := map[string]error{
		"ok":              nil,
		"canceled":        context.Canceled,
		"catalog_empty":   domain.ErrCatalogEmpty,
		"embedding_error": domain.ErrEmbedding,
		"error":           errors.New("boom"),
	}
	for want, err := range tests {
		if got := searchStatus(err); got != want {
			t.Errorf("searchStatus(%v) = %q, want %q", err, got, want)
		}
	}
}
