package chi

import (
	"github.com/kailas-cloud/carbonfactors/internal/domain/report"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeNoResults          ErrorCode = "no_results"
	ErrorCodeEmbeddingFailed    ErrorCode = "embedding_failed"
	ErrorCodeCatalogNotLoaded   ErrorCode = "catalog_not_loaded"
	ErrorCodeCatalogBuildFailed ErrorCode = "catalog_build_failed"
	ErrorCodeInternalError      ErrorCode = "internal_error"
	ErrorCodeBatchLimitExceeded ErrorCode = "batch_limit_exceeded"
	ErrorCodeMethodNotAllowed   ErrorCode = "method_not_allowed"
	ErrorCodeRouteNotFound      ErrorCode = "not_found"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /api/v1/emission-factors/search.
type SearchRequest struct {
	Query    string  `json:"query"`
	TopK     *int    `json:"top_k,omitempty"`
	Category *string `json:"category,omitempty"`
}

// SearchParams are the query parameters of GET /api/v1/emission-factors/search.
type SearchParams struct {
	Query    string
	TopK     *int
	Category *string
}

// SearchResultItem is one ranked emission factor.
type SearchResultItem struct {
	EFID            string  `json:"ef_id"`
	Category        string  `json:"category,omitempty"`
	Gas             string  `json:"gas,omitempty"`
	Description     string  `json:"description"`
	Value           float64 `json:"value"`
	Unit            string  `json:"unit"`
	Source          string  `json:"source,omitempty"`
	Region          string  `json:"region,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SearchResponse is the search result with the normalized query vector.
type SearchResponse struct {
	Results     []SearchResultItem `json:"results"`
	QueryVector []float32          `json:"query_vector"`
}

// ActivityRequest is one raw activity.
type ActivityRequest struct {
	Description  string   `json:"description"`
	QuantityText string   `json:"quantity_text,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	CategoryHint string   `json:"category_hint,omitempty"`
	SourceType   string   `json:"source_type,omitempty"`
}

// CalculateRequest is the body of POST /api/v1/emissions/calculate.
type CalculateRequest struct {
	Activities []ActivityRequest `json:"activities"`
}

// CalculateResponse holds one report per activity, in request order.
type CalculateResponse struct {
	Reports []report.Report `json:"reports"`
}

// ReloadResponse describes the catalog loaded by POST /api/v1/catalog/reload.
type ReloadResponse struct {
	Version    string `json:"version"`
	Factors    int    `json:"factors"`
	Dimensions int    `json:"dimensions"`
	LoadedAt   string `json:"loaded_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	APIVersion string            `json:"api_version"`
	Model      string            `json:"model,omitempty"`
	Catalog    *CatalogHealth    `json:"catalog,omitempty"`
	Checks     map[string]string `json:"checks"`
}

// CatalogHealth describes the active catalog.
type CatalogHealth struct {
	Version string `json:"version"`
	Factors int    `json:"factors"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Period      string          `json:"period"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Providers   []ProviderUsage `json:"providers"`
}

// ProviderUsage is one provider's token budget state. A zero limit and
// remaining -1 mean unlimited.
type ProviderUsage struct {
	Provider        string `json:"provider"`
	TokensLimit     int64  `json:"tokens_limit"`
	TokensUsed      int64  `json:"tokens_used"`
	TokensRemaining int64  `json:"tokens_remaining"`
	IsExhausted     bool   `json:"is_exhausted"`
}
