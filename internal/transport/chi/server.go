// Package chi exposes the question answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/answer"
	"github.com/kailas-cloud/boardrag/internal/logger"
	healthuc "github.com/kailas-cloud/boardrag/internal/usecase/health"
	statsuc "github.com/kailas-cloud/boardrag/internal/usecase/stats"
	"github.com/kailas-cloud/boardrag/internal/version"
)

const (
	maxBodyBytes = 64 << 10
	// isoMicros is a local ISO 8601 timestamp with microseconds and no zone.
	isoMicros = "2006-01-02T15:04:05.000000"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// QueryService answers one question.
type QueryService interface {
	Query(ctx context.Context, question string) (answer.Response, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	query         QueryService
	health        HealthService
	stats         *statsuc.Service
	games         []domain.Game
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query QueryService,
	health HealthService,
	stats *statsuc.Service,
	games []domain.Game,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		query:    query,
		health:   health,
		stats:    stats,
		games:    games,
		validate: validator.New(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrCompletion, http.StatusBadGateway, codeCompletionFailed),
	}
	return s
}

// Info handles GET /.
func (s *Server) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Message: "Board Games RAG API",
		Version: version.Version,
		Endpoints: map[string]string{
			"POST /query": "Ask a question about board games",
			"GET /health": "Check API and database health",
			"GET /games":  "List supported games",
			"GET /stats":  "Server statistics",
			"GET /logs":   "Logging information",
		},
	})
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest()

	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return
	}

	resp, err := s.query.Query(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponseFromDomain(resp))
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
		Status:         string(report.Status),
		DatabaseLoaded: report.IndexLoaded,
		Message:        report.Message,
		Checks:         checks,
	})
}

// Games handles GET /games.
func (s *Server) Games(w http.ResponseWriter, _ *http.Request) {
	items := make([]GameResponse, len(s.games))
	for i, g := range s.games {
		kws := make([]string, len(g.Keywords))
		copy(kws, g.Keywords)
		items[i] = GameResponse{Name: g.Name, Description: g.Description, Keywords: kws}
	}
	writeJSON(w, http.StatusOK, GamesResponse{Games: items})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	snap := s.stats.Snapshot()
	writeJSON(w, http.StatusOK, StatsResponse{
		UptimeSeconds:   snap.Uptime.Seconds(),
		UptimeFormatted: statsuc.FormatUptime(snap.Uptime),
		TotalRequests:   snap.TotalRequests,
		ServerStartTime: snap.StartedAt.Format(isoMicros),
		CurrentTime:     snap.Now.Format(isoMicros),
	})
}

// Logs handles GET /logs. Logs are not retained; the reply points at where they go.
func (s *Server) Logs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LogsResponse{
		Message:      "Logs endpoint - check your terminal/console for real-time logs",
		LoggingLevel: levelName(s.logger.Level()),
		Note:         "Set logging.level: debug in config/<env>.yaml for more detailed logs",
	})
}

func levelName(l zapcore.Level) string {
	if l == zapcore.InvalidLevel {
		return "OFF"
	}
	return strings.ToUpper(l.String())
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func queryResponseFromDomain(resp answer.Response) QueryResponse {
	sources := make([]SourceResponse, len(resp.Sources))
	for i, src := range resp.Sources {
		sources[i] = SourceResponse{ID: src.ID, Content: src.Content, Score: src.Score}
	}
	return QueryResponse{Answer: resp.Answer, Sources: sources, Question: resp.Question}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return "question is required"
		case "max":
			return "question must be at most " + fe.Param() + " characters"
		}
	}
	return "invalid request"
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrIndexUnavailable,
		domain.ErrCompletion,
		domain.ErrEmbeddingProviderError,
		domain.ErrFormat,
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

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
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
