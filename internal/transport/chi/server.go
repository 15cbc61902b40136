package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/payload"
	"github.com/overlordausritter/thematicbeast/internal/logger"
	healthuc "github.com/overlordausritter/thematicbeast/internal/usecase/health"
	queryuc "github.com/overlordausritter/thematicbeast/internal/usecase/query"
)

const maxBodyBytes = 1 << 20

// Server serves the query, health and metrics endpoints.
type Server struct {
	query         *queryuc.Service
	health        *healthuc.Service
	defaultMode   mode.Mode
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaultMode applies when a request
// carries no ?mode= parameter.
func NewServer(
	query *queryuc.Service,
	health *healthuc.Service,
	defaultMode mode.Mode,
	logger *zap.Logger,
) *Server {
	if !defaultMode.IsValid() {
		defaultMode = mode.Filtered
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		query:       query,
		health:      health,
		defaultMode: defaultMode,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		bodyErrorHandler(domain.ErrMissingQuery, http.StatusBadRequest),
		bodyErrorHandler(domain.ErrMissingCompany, http.StatusBadRequest),
		bodyErrorHandler(domain.ErrInvalidMode, http.StatusBadRequest),
		bodyErrorHandler(domain.ErrRetrievalExhausted, http.StatusBadGateway),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusBadGateway, codeIndexNotFound),
		sentinelHandler(domain.ErrRetrievalProvider, http.StatusBadGateway, codeRetrievalProviderError),
		sentinelHandler(domain.ErrPoolTimeout, http.StatusServiceUnavailable, codeRetrievalUnavailable),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/llamaquery", s.LlamaQuery)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// LlamaQuery handles POST /llamaquery.
func (s *Server) LlamaQuery(w http.ResponseWriter, r *http.Request) {
	m := s.defaultMode
	if v := r.URL.Query().Get("mode"); v != "" {
		m = mode.Mode(v)
	}

	var p payload.Payload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body: " + err.Error()})
		return
	}

	res, err := s.query.Query(r.Context(), &p, m)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if res.Mode == mode.Unfiltered {
		writeJSON(w, http.StatusOK, unfilteredResponse{Results: res.Records, Count: len(res.Records)})
		return
	}
	writeJSON(w, http.StatusOK, filteredResponse{
		Company: res.Company,
		Results: res.Records,
		Message: res.Message,
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

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
