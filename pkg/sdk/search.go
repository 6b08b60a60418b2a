package carbonfactors

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
)

// SearchOption tunes a single search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK     int
	category string
}

// TopK limits the number of hits. Default: 5.
func TopK(k int) SearchOption {
	return func(c *searchConfig) { c.topK = k }
}

// Category keeps only factors whose IPCC category starts with prefix.
func Category(prefix string) SearchOption {
	return func(c *searchConfig) { c.category = prefix }
}

// Search ranks catalog factors by similarity to query.
// An empty result is not an error.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opSearch, start, len(res.Hits), err) }()

	sc := searchConfig{topK: request.DefaultTopK}
	for _, o := range opts {
		o(&sc)
	}
	req, err := request.New(query, sc.topK, sc.category)
	if err != nil {
		return SearchResult{}, err
	}

	e, err := c.engines.Current()
	if err != nil {
		return SearchResult{}, err
	}
	r, err := e.Search.Search(ctx, &req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return searchResultFromDomain(&r), nil
}
