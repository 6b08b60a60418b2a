package carbonfactors

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// mockEmbedder maps "glass" queries to [0 1] and everything else to [1 0].
type mockEmbedder struct {
	calls atomic.Int32
	fn    func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	m.calls.Add(1)
	if m.fn != nil {
		return m.fn(ctx, text)
	}
	if strings.Contains(text, "glass") {
		return EmbeddingResult{Embedding: []float32{0, 2}, TotalTokens: 4}, nil
	}
	return EmbeddingResult{Embedding: []float32{3, 0}, TotalTokens: 4}, nil
}

const testCatalog = `[
  {"ef_id": "steel", "ipcc_category_2006": "2.C.1", "gas": "CO2e",
   "description": "Steel production", "value": "2", "unit": "kg CO2e/kg",
   "data_provider": "EFDB", "source_of_data": "IPCC 2006", "vector": [1, 0]},
  {"ef_id": "glass", "ipcc_category_2006": "2.A.3", "gas": "CO2e",
   "description": "Glass production", "value": 1, "unit": "kg CO2e/kg",
   "data_provider": "EFDB", "vector": [0, 1]},
  {"ef_id": "", "description": "broken record", "value": "1", "unit": "kg", "vector": [1, 1]}
]`

// writeCatalog writes the test catalog and returns its glob pattern.
func writeCatalog(t *testing.T) (dir, pattern string) {
	t.Helper()
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "efdb.json"), []byte(testCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, filepath.Join(dir, "*.json")
}

func newTestClient(t *testing.T, emb Embedder, opts ...Option) (*Client, string) {
	t.Helper()
	dir, pattern := writeCatalog(t)
	opts = append([]Option{
		WithCatalogFiles(pattern),
		WithCatalogVersion("test-v1"),
		WithEmbedder(emb),
	}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, dir
}
