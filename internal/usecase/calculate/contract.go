package calculate

import (
	"context"

	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/matching"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

// Normalizer converts raw activities.
type Normalizer interface {
	Normalize(in normalize.Input) (*activity.Activity, error)
}

// Matcher resolves components to emission factors.
type Matcher interface {
	Match(ctx context.Context, c activity.Component) (matching.Match, error)
	Resolve(c activity.Component, f factor.EmissionFactor) (matching.Candidate, error)
}

// Catalog is the loaded factor catalog.
type Catalog interface {
	Len() int
	Get(id string) (factor.EmissionFactor, bool)
}
