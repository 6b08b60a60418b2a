package carbonfactors

import "github.com/kailas-cloud/carbonfactors/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery        = domain.ErrInvalidQuery
	ErrInvalidActivity     = domain.ErrInvalidActivity
	ErrEmbedding           = domain.ErrEmbedding
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrIndexBuild          = domain.ErrIndexBuild
	ErrCatalogEmpty        = domain.ErrCatalogEmpty
	ErrVectorDimMismatch   = domain.ErrVectorDimMismatch
)
