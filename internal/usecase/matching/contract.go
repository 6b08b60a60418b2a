package matching

import (
	"context"

	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
)

// Searcher ranks catalog factors for a query.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (result.Result, error)
}

// GWPTable resolves global warming potentials.
type GWPTable interface {
	Lookup(gas string) (float64, error)
}
