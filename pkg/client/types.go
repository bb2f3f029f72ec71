package client

// Source is one rulebook passage the answer was based on.
type Source struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// QueryResult is the answer to one question.
type QueryResult struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Question string   `json:"question"`
}

// HealthStatus is the service health report.
type HealthStatus struct {
	Status         string            `json:"status"`
	DatabaseLoaded bool              `json:"database_loaded"`
	Message        string            `json:"message"`
	Checks         map[string]string `json:"checks"`
}

// Healthy reports whether the service can answer questions with all providers up.
func (h *HealthStatus) Healthy() bool { return h.Status == "healthy" }

// Game is a supported board game.
type Game struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type gamesEnvelope struct {
	Games []Game `json:"games"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
