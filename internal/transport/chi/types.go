package chi

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeIndexUnavailable = "index_unavailable"
	codeCompletionFailed = "completion_failed"
	codeInternalError    = "internal_error"
)

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// SourceResponse is one attributed passage.
type SourceResponse struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// QueryResponse is the POST /query result.
type QueryResponse struct {
	Answer   string           `json:"answer"`
	Sources  []SourceResponse `json:"sources"`
	Question string           `json:"question"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status         string            `json:"status"`
	DatabaseLoaded bool              `json:"database_loaded"`
	Message        string            `json:"message"`
	Checks         map[string]string `json:"checks"`
}

// GameResponse describes one supported game.
type GameResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GamesResponse is the GET /games body.
type GamesResponse struct {
	Games []GameResponse `json:"games"`
}

// StatsResponse is the GET /stats body.
type StatsResponse struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	UptimeFormatted string  `json:"uptime_formatted"`
	TotalRequests   int64   `json:"total_requests"`
	ServerStartTime string  `json:"server_start_time"`
	CurrentTime     string  `json:"current_time"`
}

// LogsResponse is the GET /logs body.
type LogsResponse struct {
	Message      string `json:"message"`
	LoggingLevel string `json:"logging_level"`
	Note         string `json:"note"`
}

// InfoResponse is the GET / body.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
