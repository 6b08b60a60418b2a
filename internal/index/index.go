// Package index implements the exact cosine similarity index over the
// emission factor catalog.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
)

// Index is an immutable brute-force cosine index. Rows are L2-normalized at
// build time, so a query is one dot product per factor. Safe for concurrent use.
type Index struct {
	catalog *factor.Catalog
	dim     int
	rows    [][]float32
}

// Build indexes every factor of the catalog.
// Fails with *domain.IndexBuildError on an empty catalog, duplicate ids,
// inconsistent dimensionality or a zero-norm embedding.
func Build(catalog *factor.Catalog) (*Index, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, domain.NewIndexBuildError("", "catalog is empty")
	}
	idx := &Index{
		catalog: catalog,
		dim:     catalog.At(0).Dimensions(),
		rows:    make([][]float32, catalog.Len()),
	}
	seen := make(map[string]struct{}, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		f := catalog.At(i)
		if _, dup := seen[f.ID()]; dup {
			return nil, domain.NewIndexBuildError(f.ID(), "duplicate factor id")
		}
		seen[f.ID()] = struct{}{}
		if f.Dimensions() != idx.dim {
			return nil, domain.NewIndexBuildError(f.ID(),
				fmt.Sprintf("embedding has %d dimensions, catalog has %d", f.Dimensions(), idx.dim))
		}
		row, err := domain.NormalizeL2(f.Embedding())
		if err != nil {
			return nil, domain.NewIndexBuildError(f.ID(), err.Error())
		}
		idx.rows[i] = row
	}
	return idx, nil
}

// Catalog returns the indexed catalog.
func (x *Index) Catalog() *factor.Catalog { return x.catalog }

// Dimensions returns the embedding dimensionality.
func (x *Index) Dimensions() int { return x.dim }

// Len returns the number of indexed factors.
func (x *Index) Len() int { return len(x.rows) }

// Row returns the normalized embedding at insertion position i.
func (x *Index) Row(i int) []float32 { return x.rows[i] }

// Query returns the k most similar factors by cosine similarity, strictly
// non-increasing by score; equal scores keep catalog insertion order.
// k larger than the catalog returns every factor.
func (x *Index) Query(vec []float32, k int) ([]result.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidQuery, k)
	}
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(vec), x.dim)
	}
	qn := domain.L2Norm(vec)
	if qn == 0 || math.IsNaN(qn) || math.IsInf(qn, 0) {
		return nil, fmt.Errorf("%w: query vector has no direction", domain.ErrInvalidQuery)
	}

	scores := make([]float64, len(x.rows))
	order := make([]int, len(x.rows))
	for i, row := range x.rows {
		scores[i] = dot(row, vec) / qn
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]result.Hit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = result.NewHit(x.catalog.At(j), scores[j])
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
