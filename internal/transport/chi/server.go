// Package chi exposes the HTTP API: dispatch, hybrid search, file
// indexing, usage reports and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/domain"
	"github.com/kailas-cloud/aigate/internal/upstream"
	healthuc "github.com/kailas-cloud/aigate/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/aigate/internal/usecase/indexer"
	retrievaluc "github.com/kailas-cloud/aigate/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/aigate/internal/usecase/usage"
)

// Dispatcher processes AI requests through the provider chain.
type Dispatcher interface {
	Process(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error)
}

// Searcher runs hybrid retrieval queries.
type Searcher interface {
	Search(ctx context.Context, req retrievaluc.Request) (retrievaluc.Response, error)
}

// Indexer maintains the per-file search indexes.
type Indexer interface {
	IndexFile(ctx context.Context, fileID string) (indexeruc.Stats, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// UsageReporter builds per-user usage reports.
type UsageReporter interface {
	Report(ctx context.Context, userID string, tier domain.Tier) (usageuc.Report, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server handles the HTTP API.
type Server struct {
	dispatch       Dispatcher
	search         Searcher
	indexer        Indexer
	usage          UsageReporter
	health         HealthChecker
	users          upstream.UserDirectory
	access         upstream.Access
	logger         *zap.Logger
	defaultLimit   int
	maxSearchLimit int
}

// NewServer creates an HTTP API server.
func NewServer(
	dispatch Dispatcher,
	search Searcher,
	indexer Indexer,
	usage UsageReporter,
	health HealthChecker,
	users upstream.UserDirectory,
	access upstream.Access,
	logger *zap.Logger,
) *Server {
	return &Server{
		dispatch:       dispatch,
		search:         search,
		indexer:        indexer,
		usage:          usage,
		health:         health,
		users:          users,
		access:         access,
		logger:         logger,
		defaultLimit:   10,
		maxSearchLimit: 50,
	}
}

// WithSearchLimits overrides the default and maximum search result limits.
func (s *Server) WithSearchLimits(def, max int) *Server {
	if def > 0 {
		s.defaultLimit = def
	}
	if max > 0 {
		s.maxSearchLimit = max
	}
	return s
}

// Routes mounts all API handlers on a chi router.
func (s *Server) Routes(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, m := range middlewares {
		r.Use(m)
	}

	r.Post("/v1/dispatch", s.handleDispatch)
	r.Post("/v1/search", s.handleSearch)
	r.Post("/v1/files/{id}/index", s.handleIndexFile)
	r.Delete("/v1/files/{id}/index", s.handleDeleteFile)
	r.Get("/v1/usage", s.handleUsage)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

type dispatchRequest struct {
	UserID      string            `json:"user_id"`
	Type        string            `json:"type"`
	Content     string            `json:"content"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user_id is required")
		return
	}

	user, err := s.users.Lookup(r.Context(), req.UserID)
	if err != nil {
		s.handleDomainError(w, err, "user lookup failed")
		return
	}

	aiReq, err := domain.NewAIRequest(
		user.ID, user.Tier, domain.RequestType(req.Type),
		req.Content, req.System,
		req.Temperature, req.MaxTokens,
		req.Context,
	)
	if err != nil {
		s.handleDomainError(w, err, "invalid request")
		return
	}

	resp, err := s.dispatch.Process(r.Context(), &aiReq)
	if err != nil {
		s.handleDomainError(w, err, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	KBID     string `json:"kb_id,omitempty"`
	FileType string `json:"file_type,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Rerank   bool   `json:"rerank,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user_id is required")
		return
	}

	user, err := s.users.Lookup(r.Context(), req.UserID)
	if err != nil {
		s.handleDomainError(w, err, "user lookup failed")
		return
	}

	filter := domain.SearchFilter{FileType: req.FileType}
	if req.KBID != "" {
		// Shared knowledge bases need an explicit grant.
		allowed, err := s.access.CanQuery(r.Context(), user.ID, req.KBID)
		if err != nil {
			s.handleDomainError(w, err, "permission check failed")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, codePermissionDenied,
				"no access to knowledge base "+req.KBID)
			return
		}
		filter.KBID = req.KBID
	} else {
		filter.OwnerID = user.ID
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxSearchLimit {
		limit = s.maxSearchLimit
	}

	resp, err := s.search.Search(r.Context(), retrievaluc.Request{
		UserID: user.ID,
		Tier:   user.Tier,
		Query:  req.Query,
		Filter: filter,
		Limit:  limit,
		Rerank: req.Rerank,
	})
	if err != nil {
		s.handleDomainError(w, err, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:   resp.Results,
		Total:     resp.Total,
		ElapsedMS: resp.Elapsed.Milliseconds(),
		Partial:   resp.Partial,
	})
}

type searchResponse struct {
	Results   []domain.Hit `json:"results"`
	Total     int          `json:"total"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Partial   bool         `json:"partial,omitempty"`
}

func (s *Server) handleIndexFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")

	stats, err := s.indexer.IndexFile(r.Context(), fileID)
	if err != nil {
		s.handleDomainError(w, err, "indexing failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")

	if err := s.indexer.DeleteFile(r.Context(), fileID); err != nil {
		s.handleDomainError(w, err, "index removal failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user_id is required")
		return
	}

	user, err := s.users.Lookup(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err, "user lookup failed")
		return
	}

	report, err := s.usage.Report(r.Context(), user.ID, user.Tier)
	if err != nil {
		s.handleDomainError(w, err, "usage report failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Error response codes.
const (
	codeBadRequest         = "bad_request"
	codeNotFound           = "not_found"
	codePermissionDenied   = "permission_denied"
	codeQuotaExceeded      = "quota_exceeded"
	codeProvidersExhausted = "providers_exhausted"
	codeSearchFailed       = "search_failed"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Limit    int64  `json:"limit,omitempty"`
	Current  int64  `json:"current,omitempty"`
	ResetsAt string `json:"resets_at,omitempty"`
}

// handleDomainError maps domain sentinels to HTTP statuses. Unknown errors
// are logged and surface as an opaque 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error, msg string) {
	var quota *domain.QuotaError
	if errors.As(err, &quota) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Code:     codeQuotaExceeded,
			Message:  domain.ErrQuotaExceeded.Error(),
			Limit:    quota.Limit,
			Current:  quota.Current,
			ResetsAt: quota.ResetsAt.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, codeQuotaExceeded, domain.ErrQuotaExceeded.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrUserNotFound.Error())
	case errors.Is(err, domain.ErrFileNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrFileNotFound.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, codePermissionDenied, domain.ErrPermissionDenied.Error())
	case errors.Is(err, domain.ErrProvidersExhausted):
		writeError(w, http.StatusBadGateway, codeProvidersExhausted, domain.ErrProvidersExhausted.Error())
	case errors.Is(err, domain.ErrSearchFailed):
		writeError(w, http.StatusBadGateway, codeSearchFailed, domain.ErrSearchFailed.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
