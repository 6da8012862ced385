package chi

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/explain"
	"github.com/kailas-cloud/qtext/internal/domain/query"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/logger"
	healthuc "github.com/kailas-cloud/qtext/internal/usecase/health"
	highlightuc "github.com/kailas-cloud/qtext/internal/usecase/highlight"
)

// SearchService answers hybrid queries.
type SearchService interface {
	Query(ctx context.Context, req query.Request) ([]record.Record, error)
	Explain(ctx context.Context, req query.Request) (explain.Result, error)
}

// NamespaceService creates namespaces.
type NamespaceService interface {
	Create(ctx context.Context, name string, vectorDim, sparseDim int) error
}

// DocumentService adds documents.
type DocumentService interface {
	Add(ctx context.Context, namespace string, raw map[string]any) error
}

// HighlightService marks query-relevant words.
type HighlightService interface {
	Highlight(ctx context.Context, req highlightuc.Request) ([]string, error)
}

// HealthService reports readiness.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Services groups the use cases behind the HTTP API. Highlight may be nil
// when no token scorer is configured.
type Services struct {
	Search     SearchService
	Namespaces NamespaceService
	Documents  DocumentService
	Highlight  HighlightService
	Health     HealthService
}

// Server implements the qtext HTTP API.
type Server struct {
	svc           Services
	projector     projector
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. Query results are projected onto s.
func NewServer(svc Services, s schema.Schema, logger *zap.Logger) *Server {
	return &Server{
		svc:           svc,
		projector:     projector{schema: s},
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateNamespace handles POST /api/namespace.
func (s *Server) CreateNamespace(w http.ResponseWriter, r *http.Request) {
	var req namespaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.svc.Namespaces.Create(r.Context(), req.Name, req.VectorDim, req.SparseVectorDim); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// AddDocument handles POST /api/doc.
func (s *Server) AddDocument(w http.ResponseWriter, r *http.Request) {
	// schema fields are open-ended; unknown ones are rejected by the document itself
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	ns, fields, err := splitDocument(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.svc.Documents.Add(r.Context(), ns, fields); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	recs, err := s.svc.Search.Query(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.projector.documents(recs))
}

// QueryExplain handles POST /api/query_explain.
func (s *Server) QueryExplain(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Search.Explain(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (query.Request, bool) {
	var body queryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return query.Request{}, false
	}
	req, err := body.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return query.Request{}, false
	}
	logger.FromContextOr(r.Context(), s.logger).Debug("query",
		zap.String("namespace", req.Namespace()),
		zap.Int("limit", req.Limit()),
		zap.Any("metadata", req.Metadata()),
	)
	return req, true
}

// Highlight handles POST /api/highlight.
func (s *Server) Highlight(w http.ResponseWriter, r *http.Request) {
	var body highlightRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if s.svc.Highlight == nil {
		s.handleDomainError(w, r, fmt.Errorf("highlight: no token scorer: %w", domain.ErrConfiguration))
		return
	}
	out, err := s.svc.Highlight.Highlight(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{Highlighted: out})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: report.Checks})
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
