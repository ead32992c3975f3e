package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/metrics"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
	embeddinguc "github.com/kailas-cloud/archivist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
)

// maxBodyBytes bounds request bodies; filter lists are small.
const maxBodyBytes = 1 << 20

// Server serves the archivist HTTP API.
type Server struct {
	compile       *compileuc.Service
	embedding     *embeddinguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	compile *compileuc.Service,
	embedding *embeddinguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		compile:   compile,
		embedding: embedding,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		invalidArgumentHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/namespaces", s.ListNamespaces)
		r.Get("/namespaces/{namespace}", s.GetNamespace)
		r.Post("/namespaces/{namespace}/compile", s.Compile)
		r.Post("/embeddings", s.CreateEmbedding)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}

// Compile handles POST /api/v1/namespaces/{namespace}/compile.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	ns := namespace.Namespace(chi.URLParam(r, "namespace"))

	var req CompileRequest
	if !s.decode(w, r, &req) {
		return
	}

	compiled, err := s.compile.Compile(r.Context(), ns, req.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compiled)
}

// ListNamespaces handles GET /api/v1/namespaces.
func (s *Server) ListNamespaces(w http.ResponseWriter, _ *http.Request) {
	all, err := s.compile.Describe()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]NamespaceResponse, len(all))
	for i, d := range all {
		items[i] = namespaceToDTO(d)
	}
	writeJSON(w, http.StatusOK, NamespaceListResponse{Items: items})
}

// GetNamespace handles GET /api/v1/namespaces/{namespace}.
func (s *Server) GetNamespace(w http.ResponseWriter, r *http.Request) {
	ns := namespace.Namespace(chi.URLParam(r, "namespace"))

	d, err := s.compile.DescribeNamespace(ns)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, namespaceToDTO(d))
}

// CreateEmbedding handles POST /api/v1/embeddings.
func (s *Server) CreateEmbedding(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "model is required")
		return
	}

	res, err := s.embedding.Reference(r.Context(), req.Model, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EmbeddingResponse{
		Model:      res.Reference.Model,
		Dimensions: len(res.Reference.Vector),
		Reference:  res.Reference.String(),
		Cached:     res.Cached,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			s.handleDomainError(w, err)
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
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
