package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 100
)

// Request is a validated search query.
type Request struct {
	query    string
	topK     int
	category string
}

// New validates search parameters.
// topK must be positive and is clamped to MaxTopK. category is an optional
// post-ranking filter on the factor category code.
func New(query string, topK int, category string) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidQuery, topK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	return Request{query: query, topK: topK, category: strings.TrimSpace(category)}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }

// Category returns the category filter; empty means no filter.
func (r *Request) Category() string { return r.category }

// HasCategory reports whether a category filter is set.
func (r *Request) HasCategory() bool { return r.category != "" }

// MatchesCategory reports whether a factor category passes the filter.
// Matching is case-insensitive on the code or any of its parent codes:
// filter "1.A" matches "1.A.3.b" but not "1.AB".
func (r *Request) MatchesCategory(category string) bool {
	if r.category == "" {
		return true
	}
	want := strings.ToLower(r.category)
	got := strings.ToLower(strings.TrimSpace(category))
	if got == want {
		return true
	}
	if !strings.HasPrefix(got, want) {
		return false
	}
	next := got[len(want)]
	return next == '.' || next == ' ' || next == '-' || strings.HasSuffix(want, ".")
}
