package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/carbonfactors/internal/usecase/health"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
	usageuc "github.com/kailas-cloud/carbonfactors/internal/usecase/usage"
	"github.com/kailas-cloud/carbonfactors/internal/version"
)

const (
	apiVersion     = "v1"
	welcomeMessage = "Welcome to the Emission Factors Semantic Search API"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Engines gives access to the current catalog snapshot.
type Engines interface {
	Current() (*engine.Engine, error)
	Reload(ctx context.Context) (*engine.Engine, error)
}

// Options tunes request handling.
type Options struct {
	// Model is reported by /health.
	Model        string
	DefaultTopK  int
	MaxBatchSize int
}

// Server serves the emission factor API.
type Server struct {
	engines       Engines
	health        *healthuc.Service
	usage         *usageuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
// usage may be nil when no provider has a token budget.
func NewServer(
	engines Engines, health *healthuc.Service, usage *usageuc.Service, opts Options, logger *zap.Logger,
) *Server {
	if usage == nil {
		usage = usageuc.New()
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = request.DefaultTopK
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 100
	}
	s := &Server{
		engines: engines,
		health:  health,
		usage:   usage,
		opts:    opts,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidActivity, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrCatalogEmpty, http.StatusServiceUnavailable, ErrorCodeCatalogNotLoaded),
		sentinelHandler(domain.ErrEmbedding, http.StatusServiceUnavailable, ErrorCodeEmbeddingFailed),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrorCodeEmbeddingFailed),
		sentinelHandler(domain.ErrIndexBuild, http.StatusUnprocessableEntity, ErrorCodeCatalogBuildFailed),
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{Message: welcomeMessage, Version: version.Version})
}

// SearchFactors handles POST /api/v1/emission-factors/search.
func (s *Server) SearchFactors(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.search(w, r, SearchParams(req))
}

// SearchFactorsQuery handles GET /api/v1/emission-factors/search?query=...&top_k=...&category=...
func (s *Server) SearchFactorsQuery(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.search(w, r, params)
}

func bindSearchParams(q url.Values) (SearchParams, error) {
	var p SearchParams
	if err := runtime.BindQueryParameter("form", true, true, "query", q, &p.Query); err != nil {
		return SearchParams{}, fmt.Errorf("invalid format for parameter query: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", q, &p.TopK); err != nil {
		return SearchParams{}, fmt.Errorf("invalid format for parameter top_k: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "category", q, &p.Category); err != nil {
		return SearchParams{}, fmt.Errorf("invalid format for parameter category: %w", err)
	}
	return p, nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, p SearchParams) {
	topK := s.opts.DefaultTopK
	if p.TopK != nil {
		topK = *p.TopK
	}
	req, err := request.New(p.Query, topK, derefString(p.Category))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	e, err := s.engines.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := e.Search.Search(ctx, &req)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if res.Len() == 0 {
		writeError(w, http.StatusNotFound, ErrorCodeNoResults,
			"No results found for your query. Try a different search term or category.")
		return
	}

	writeJSON(w, http.StatusOK, searchResultToResponse(&res))
}

// CalculateEmissions handles POST /api/v1/emissions/calculate.
func (s *Server) CalculateEmissions(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Activities) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "activities must not be empty")
		return
	}
	if len(req.Activities) > s.opts.MaxBatchSize {
		writeError(w, http.StatusBadRequest, ErrorCodeBatchLimitExceeded,
			fmt.Sprintf("at most %d activities per request", s.opts.MaxBatchSize))
		return
	}

	e, err := s.engines.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	inputs := make([]normalize.Input, len(req.Activities))
	for i, a := range req.Activities {
		inputs[i] = activityFromRequest(a)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	reports, err := e.Calculate.CalculateBatch(ctx, inputs)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CalculateResponse{Reports: reports})
}

// ReloadCatalog handles POST /api/v1/catalog/reload.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	e, err := s.engines.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		Version:    e.Catalog.Version(),
		Factors:    e.Catalog.Len(),
		Dimensions: e.Index.Dimensions(),
		LoadedAt:   e.LoadedAt.Format(time.RFC3339),
	})
}

// GetUsage handles GET /api/v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid format for parameter period: "+err.Error())
		return
	}
	period, err := usageuc.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	resp := UsageResponse{
		Period:      string(report.Period),
		PeriodStart: report.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   report.PeriodEnd.Format(time.RFC3339),
		Providers:   make([]ProviderUsage, 0, len(report.Providers)),
	}
	for _, p := range report.Providers {
		resp.Providers = append(resp.Providers, ProviderUsage{
			Provider:        p.Provider,
			TokensLimit:     p.Limit,
			TokensUsed:      p.Used,
			TokensRemaining: p.Remaining,
			IsExhausted:     p.Exhausted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
// Degraded still answers 200: search works while the cache or a fallback provider is down.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	resp := HealthResponse{
		Status:     string(report.Status),
		APIVersion: apiVersion,
		Model:      s.opts.Model,
		Checks:     checks,
	}
	if report.CatalogFactors > 0 {
		resp.Catalog = &CatalogHealth{Version: report.CatalogVersion, Factors: report.CatalogFactors}
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Calls() > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
		w.Header().Set("X-Embedding-Calls", strconv.Itoa(usage.Calls()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors describe the caller's own input and are returned in full.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrInvalidActivity) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrCatalogEmpty,
		domain.ErrEmbedding,
		domain.ErrProviderUnavailable,
		domain.ErrIndexBuild,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func searchResultToResponse(r *result.Result) SearchResponse {
	items := make([]SearchResultItem, 0, r.Len())
	for _, h := range r.Hits() {
		f := h.Factor()
		items = append(items, SearchResultItem{
			EFID:            f.ID(),
			Category:        f.Category(),
			Gas:             f.Gas(),
			Description:     f.Description(),
			Value:           f.Value(),
			Unit:            f.Unit(),
			Source:          f.Provenance().Label(),
			Region:          f.Provenance().Region,
			SimilarityScore: h.Score(),
		})
	}
	vec := r.QueryVector()
	if vec == nil {
		vec = []float32{}
	}
	return SearchResponse{Results: items, QueryVector: vec}
}

func activityFromRequest(a ActivityRequest) normalize.Input {
	return normalize.Input{
		Description:  a.Description,
		QuantityText: a.QuantityText,
		Quantity:     a.Quantity,
		Unit:         a.Unit,
		CategoryHint: a.CategoryHint,
		SourceType:   a.SourceType,
	}
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
