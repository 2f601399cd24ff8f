package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
	cataloguc "github.com/bitaca/mediadex/internal/usecase/catalog"
	enrichuc "github.com/bitaca/mediadex/internal/usecase/enrich"
	healthuc "github.com/bitaca/mediadex/internal/usecase/health"
	matchuc "github.com/bitaca/mediadex/internal/usecase/match"
	searchuc "github.com/bitaca/mediadex/internal/usecase/search"
)

const (
	maxMatchBatch  = 100
	maxEnrichBatch = 100
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest              = "bad_request"
	codeValidationFailed        = "validation_failed"
	codeNotFound                = "not_found"
	codeNoMatch                 = "no_match"
	codeDimensionMismatch       = "dimension_mismatch"
	codeRateLimited             = "rate_limited"
	codeCollaboratorUnavailable = "collaborator_unavailable"
	codeEmbeddingProviderError  = "embedding_provider_error"
	codeInternalError           = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the matching and retrieval services over HTTP.
type Server struct {
	match         *matchuc.Service
	enrich        *enrichuc.Service
	search        *searchuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	match *matchuc.Service,
	enrich *enrichuc.Service,
	search *searchuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		match:   match,
		enrich:  enrich,
		search:  search,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNoMatch, http.StatusNotFound, codeNoMatch),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrCollaboratorUnavailable, http.StatusBadGateway, codeCollaboratorUnavailable),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrTaggingDegraded, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Mount registers the API routes on a router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/autocomplete", s.Autocomplete)
		r.Get("/suggestions", s.Suggestions)
		r.Get("/popular", s.Popular)
		r.Get("/recent", s.Recent)
		r.Get("/related/{id}", s.Related)
		r.Get("/trending", s.Trending)
		r.Get("/discover", s.Discover)
		r.Get("/stats", s.Stats)
		r.Post("/match", s.Match)
		r.Delete("/match/cache", s.ClearMatchCache)
		r.Post("/lookup", s.Lookup)
		r.Post("/personalized", s.Personalized)
		r.Post("/enrich", s.Enrich)
	})
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query parameter q is required")
		return
	}

	query := searchuc.Query{
		Text:   q,
		Limit:  queryInt(r, "limit", 0),
		Genres: queryList(r, "genres"),
	}
	if drive, ok := queryIntOpt(r, "drive"); ok {
		query.DriveID = &drive
	}

	results, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": results,
		"total": len(results),
	})
}

// Autocomplete handles GET /api/v1/autocomplete.
func (s *Server) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	suggestions, err := s.search.Autocomplete(r.Context(), q, queryInt(r, "limit", 0))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": suggestions})
}

// Suggestions handles GET /api/v1/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.search.Suggestions()})
}

// Popular handles GET /api/v1/popular.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.PopularSearches(queryInt(r, "limit", 10)),
	})
}

// Recent handles GET /api/v1/recent.
func (s *Server) Recent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.RecentSearches(queryInt(r, "limit", 10)),
	})
}

// Related handles GET /api/v1/related/{id}.
func (s *Server) Related(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "asset id is required")
		return
	}

	results, err := s.search.Related(r.Context(), id, queryInt(r, "limit", 0))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": results,
		"total": len(results),
	})
}

// Trending handles GET /api/v1/trending.
func (s *Server) Trending(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.Trending(r.Context(), r.URL.Query().Get("window"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": len(entries),
	})
}

// Discover handles GET /api/v1/discover.
func (s *Server) Discover(w http.ResponseWriter, r *http.Request) {
	genres := queryList(r, "genres")
	if len(genres) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query parameter genres is required")
		return
	}

	entries, err := s.catalog.Discover(r.Context(), genres, queryInt(r, "per_genre", 0))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": len(entries),
	})
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// matchRequest carries either a single entry or a batch to reconcile
// against one drive.
type matchRequest struct {
	Drive   int                   `json:"drive"`
	Entry   *domain.CatalogEntry  `json:"entry,omitempty"`
	Entries []domain.CatalogEntry `json:"entries,omitempty"`
}

// Match handles POST /api/v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Entry != nil {
		result, err := s.match.Reconcile(r.Context(), req.Entry, req.Drive)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(req.Entries) == 0 || len(req.Entries) > maxMatchBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("entries count must be between 1 and %d", maxMatchBatch))
		return
	}

	results, err := s.match.ReconcileAll(r.Context(), req.Entries, req.Drive)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":     results,
		"requested": len(req.Entries),
		"matched":   len(results),
	})
}

// ClearMatchCache handles DELETE /api/v1/match/cache.
func (s *Server) ClearMatchCache(w http.ResponseWriter, r *http.Request) {
	s.match.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// lookupRequest is a metadata-first asset lookup.
type lookupRequest struct {
	Query string `json:"query"`
	Drive int    `json:"drive"`
}

// Lookup handles POST /api/v1/lookup.
func (s *Server) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	res, err := s.match.SearchWithEnrichment(r.Context(), req.Query, req.Drive)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// personalizedRequest selects matches for a set of preferred genres.
type personalizedRequest struct {
	Genres   []string `json:"genres"`
	PerGenre int      `json:"per_genre"`
}

// Personalized handles POST /api/v1/personalized.
func (s *Server) Personalized(w http.ResponseWriter, r *http.Request) {
	var req personalizedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Genres) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "genres is required")
		return
	}

	res, err := s.match.PersonalizedMatches(r.Context(), req.Genres, req.PerGenre)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// enrichRequest carries assets, optionally paired with reconciled catalog
// entries, through the enrichment pipeline.
type enrichRequest struct {
	Items []enrichuc.Item `json:"items"`
}

// Enrich handles POST /api/v1/enrich.
func (s *Server) Enrich(w http.ResponseWriter, r *http.Request) {
	if s.enrich == nil {
		writeError(w, http.StatusServiceUnavailable, codeEmbeddingProviderError,
			"enrichment is disabled: no embedding provider configured")
		return
	}

	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Items) == 0 || len(req.Items) > maxEnrichBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("items count must be between 1 and %d", maxEnrichBatch))
		return
	}

	results, err := s.enrich.EnrichBatch(r.Context(), req.Items)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":     results,
		"requested": len(req.Items),
		"enriched":  len(results),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryIntOpt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// queryList splits a comma-separated query parameter, dropping blanks.
func queryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrNoMatch,
		domain.ErrDimensionMismatch,
		domain.ErrRateLimited,
		domain.ErrCollaboratorUnavailable,
		domain.ErrEmbedding,
		domain.ErrTaggingDegraded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
