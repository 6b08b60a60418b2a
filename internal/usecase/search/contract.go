package search

import (
	"context"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
)

// Index ranks catalog factors by similarity to a query vector.
type Index interface {
	Query(vec []float32, k int) ([]result.Hit, error)
	Len() int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
