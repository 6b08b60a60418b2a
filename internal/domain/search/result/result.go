package result

import "github.com/kailas-cloud/carbonfactors/internal/domain/factor"

// Hit is a single ranked emission factor.
type Hit struct {
	factor factor.EmissionFactor
	score  float64
}

// NewHit creates a search hit.
func NewHit(f factor.EmissionFactor, score float64) Hit {
	return Hit{factor: f, score: score}
}

// Factor returns the matched emission factor (owned by the catalog).
func (h Hit) Factor() factor.EmissionFactor { return h.factor }

// Score returns the cosine similarity in [-1, 1].
func (h Hit) Score() float64 { return h.score }

// Result is the ranked output of one search, strictly non-increasing by score.
type Result struct {
	hits        []Hit
	queryVector []float32
}

// New creates a search result.
func New(hits []Hit, queryVector []float32) Result {
	return Result{hits: hits, queryVector: queryVector}
}

// Hits returns the ranked hits.
func (r *Result) Hits() []Hit { return r.hits }

// Len returns the number of hits.
func (r *Result) Len() int { return len(r.hits) }

// Top returns the best hit, if any.
func (r *Result) Top() (Hit, bool) {
	if len(r.hits) == 0 {
		return Hit{}, false
	}
	return r.hits[0], true
}

// QueryVector returns the normalized query embedding.
func (r *Result) QueryVector() []float32 { return r.queryVector }
