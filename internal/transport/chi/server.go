// Package chi exposes the query-serving pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
	answeruc "github.com/loreline/answerd/internal/usecase/answer"
	healthuc "github.com/loreline/answerd/internal/usecase/health"
	ingestuc "github.com/loreline/answerd/internal/usecase/ingest"
)

// maxCorpusDocuments bounds one corpus load request.
const maxCorpusDocuments = 10000

// Error codes returned in the JSON error body.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeEmbeddingProvider = "embedding_provider_error"
	codeDimMismatch       = "vector_dim_mismatch"
	codeGenerationFailed  = "generation_failed"
	codeInternalError     = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	answer        *answeruc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(answer *answeruc.Service, ingest *ingestuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		answer: answer,
		ingest: ingest,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
	}
	return s
}

// Mount registers the API routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/ask", s.Ask)
	r.Put("/v1/corpus", s.LoadCorpus)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type askRequest struct {
	Query   string        `json:"query"`
	History []domain.Turn `json:"history,omitempty"`
}

type askResponse struct {
	Answer  string             `json:"answer"`
	Sources []domain.SourceRef `json:"sources"`
	Cached  bool               `json:"cached"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Query is required")
		return
	}

	answer, err := s.answer.Ask(r.Context(), req.Query, req.History)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:  answer.Text,
		Sources: sources,
		Cached:  answer.Cached,
	})
}

type corpusDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type corpusRequest struct {
	Documents []corpusDocument `json:"documents"`
}

type corpusResponse struct {
	Loaded int `json:"loaded"`
}

// LoadCorpus handles PUT /v1/corpus.
func (s *Server) LoadCorpus(w http.ResponseWriter, r *http.Request) {
	var req corpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "At least one document is required")
		return
	}
	if len(req.Documents) > maxCorpusDocuments {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Corpus exceeds the maximum document count")
		return
	}

	docs := make([]domain.Document, len(req.Documents))
	for i, d := range req.Documents {
		if d.ID == "" || d.Content == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "Every document needs an id and content")
			return
		}
		docs[i] = domain.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}

	if err := s.ingest.Load(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, corpusResponse{Loaded: len(docs)})
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
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
