package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/answer"
	healthuc "github.com/kailas-cloud/boardrag/internal/usecase/health"
	statsuc "github.com/kailas-cloud/boardrag/internal/usecase/stats"
)

// --- Mocks ---

type mockQuery struct {
	resp     answer.Response
	err      error
	panicMsg string
	lastQ    string
}

func (m *mockQuery) Query(_ context.Context, q string) (answer.Response, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.lastQ = q
	return m.resp, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newTestRouter(q QueryService, h HealthService) (http.Handler, *statsuc.Service) {
	stats := statsuc.New()
	s := NewServer(q, h, stats, domain.DefaultGames(), nil)
	return NewRouter(s, RouterConfig{}), stats
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Status:      healthuc.Healthy,
		IndexLoaded: true,
		Message:     healthuc.MessageReady,
		Checks:      map[string]healthuc.CheckResult{healthuc.ComponentIndex: healthuc.CheckOK},
	}
}

// --- Tests ---

func TestQuery_Success(t *testing.T) {
	q := &mockQuery{resp: answer.Response{
		Answer:   "Pay $50.",
		Question: "How do you get out of jail?",
		Sources: []answer.Source{
			{ID: "data/monopoly.pdf:3:0", Source: "data/monopoly.pdf", Page: 3, Content: "Jail...", Score: 0.91},
		},
	}}
	h, stats := newTestRouter(q, &mockHealth{report: healthyReport()})

	rec := do(t, h, http.MethodPost, "/query", `{"question":"How do you get out of jail?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if q.lastQ != "How do you get out of jail?" {
		t.Errorf("unexpected question forwarded: %q", q.lastQ)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"answer", "sources", "question"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	var sources []map[string]any
	if err := json.Unmarshal(raw["sources"], &sources); err != nil {
		t.Fatalf("decode sources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if len(sources[0]) != 3 {
		t.Errorf("source must carry exactly id, content, score; got %v", sources[0])
	}
	if sources[0]["id"] != "data/monopoly.pdf:3:0" || sources[0]["score"] != 0.91 {
		t.Errorf("unexpected source %v", sources[0])
	}
	if stats.Snapshot().TotalRequests != 1 {
		t.Error("expected query request to be counted")
	}
}

func TestQuery_EmptySourcesIsArray(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{resp: answer.Response{Answer: "a", Question: "q", Sources: nil}},
		&mockHealth{report: healthyReport()})

	rec := do(t, h, http.MethodPost, "/query", `{"question":"q"}`)
	if !strings.Contains(rec.Body.String(), `"sources":[]`) {
		t.Errorf("expected empty sources array, got %s", rec.Body.String())
	}
}

func TestQuery_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"question":`, codeBadRequest},
		{"missing question", `{}`, codeValidationFailed},
		{"empty question", `{"question":""}`, codeValidationFailed},
		{"too long", fmt.Sprintf(`{"question":%q}`, strings.Repeat("a", 2001)), codeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQuery{}
			h, _ := newTestRouter(q, &mockHealth{})
			rec := do(t, h, http.MethodPost, "/query", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if e := decodeError(t, rec); e.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, e.Code)
			}
			if q.lastQ != "" {
				t.Error("query service must not be called")
			}
		})
	}
}

func TestQuery_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", fmt.Errorf("%w: question is empty", domain.ErrInvalidQuery), http.StatusBadRequest, codeValidationFailed},
		{"index", fmt.Errorf("search: %w: %w", domain.ErrIndexUnavailable, domain.ErrEmbeddingProviderError),
			http.StatusServiceUnavailable, codeIndexUnavailable},
		{"completion", fmt.Errorf("complete: %w", domain.ErrCompletion), http.StatusBadGateway, codeCompletionFailed},
		{"format", domain.NewFormatError("{context}"), http.StatusInternalServerError, codeInternalError},
		{"other", errors.New("boom"), http.StatusInternalServerError, codeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestRouter(&mockQuery{err: tt.err}, &mockHealth{})
			rec := do(t, h, http.MethodPost, "/query", `{"question":"  "}`)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			e := decodeError(t, rec)
			if e.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, e.Code)
			}
			if strings.Contains(e.Message, "boom") {
				t.Error("internal error details must not leak")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{report: healthyReport()})
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "healthy" || !resp.DatabaseLoaded || resp.Checks["index"] != "ok" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	report := healthuc.Report{
		Status:  healthuc.Unhealthy,
		Message: healthuc.MessageIndexAbsent,
		Checks:  map[string]healthuc.CheckResult{healthuc.ComponentIndex: healthuc.CheckError},
	}
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{report: report})
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp HealthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "unhealthy" || resp.DatabaseLoaded || resp.Message != healthuc.MessageIndexAbsent {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestGames(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	rec := do(t, h, http.MethodGet, "/games", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp GamesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Games) != 2 || resp.Games[0].Name != "Monopoly" || resp.Games[1].Name != "Ticket to Ride" {
		t.Errorf("unexpected games %+v", resp.Games)
	}
	if len(resp.Games[0].Keywords) == 0 {
		t.Error("expected keywords")
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	do(t, h, http.MethodPost, "/query", `{"question":"q"}`)
	do(t, h, http.MethodPost, "/query", `{}`)

	rec := do(t, h, http.MethodGet, "/stats", "")
	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", resp.TotalRequests)
	}
	if resp.UptimeFormatted == "" || resp.ServerStartTime == "" || resp.CurrentTime == "" {
		t.Errorf("incomplete stats %+v", resp)
	}
	for _, ts := range []string{resp.ServerStartTime, resp.CurrentTime} {
		if _, err := time.ParseInLocation("2006-01-02T15:04:05.000000", ts, time.Local); err != nil {
			t.Errorf("timestamp %q is not microsecond ISO format: %v", ts, err)
		}
		if strings.HasSuffix(ts, "Z") || strings.Contains(ts, "+") {
			t.Errorf("timestamp %q must carry no zone", ts)
		}
	}
}

func TestInfo(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	rec := do(t, h, http.MethodGet, "/", "")
	var resp InfoResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != "Board Games RAG API" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if _, ok := resp.Endpoints["POST /query"]; !ok {
		t.Error("expected POST /query in endpoints")
	}
	if _, ok := resp.Endpoints["GET /logs"]; !ok {
		t.Error("expected GET /logs in endpoints")
	}
}

func TestMiddleware_RequestIDAndRecover(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{panicMsg: "kaboom"}, &mockHealth{})
	rec := do(t, h, http.MethodPost, "/query", `{"question":"q"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeInternalError {
		t.Errorf("expected internal_error, got %q", e.Code)
	}

	rec = do(t, h, http.MethodGet, "/games", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestNotFound(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	rec := do(t, h, http.MethodGet, "/logs", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "not_found" {
		t.Errorf("unexpected code %q", e.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(&mockQuery{}, &mockHealth{})
	do(t, h, http.MethodGet, "/games", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "boardrag_http_requests_total") {
		t.Error("expected boardrag http metrics in exposition")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotModified, zapcore.InfoLevel},
		{http.StatusBadRequest, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		if got := levelFor(tt.status); got != tt.want {
			t.Errorf("levelFor(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWideEvent_LogsStatusAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := chiMiddleware.RequestID(WideEvent(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 http_request line, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", e.Level)
	}
	fields := e.ContextMap()
	if fields["status"] != int64(http.StatusServiceUnavailable) {
		t.Errorf("status field = %v", fields["status"])
	}
	if id, _ := fields["request_id"].(string); id == "" || id != rec.Header().Get("X-Request-ID") {
		t.Errorf("request_id %q does not match header %q", id, rec.Header().Get("X-Request-ID"))
	}
}

func TestLogs(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	s := NewServer(&mockQuery{}, &mockHealth{}, statsuc.New(), domain.DefaultGames(), zap.New(core))
	h := NewRouter(s, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/logs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp LogsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LoggingLevel != "DEBUG" {
		t.Errorf("logging_level = %q, want DEBUG", resp.LoggingLevel)
	}
	if resp.Message == "" || resp.Note == "" {
		t.Errorf("incomplete logs body %+v", resp)
	}

	h, _ = newTestRouter(&mockQuery{}, &mockHealth{})
	if err := json.Unmarshal(do(t, h, http.MethodGet, "/logs", "").Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LoggingLevel != "OFF" {
		t.Errorf("nop logger logging_level = %q, want OFF", resp.LoggingLevel)
	}
}
