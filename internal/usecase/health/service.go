package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates the index is loaded but a provider probe failed.
	Degraded Status = "degraded"
	// Unhealthy indicates questions cannot be answered at all.
	Unhealthy Status = "unhealthy"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as check keys.
const (
	ComponentIndex      = "index"
	ComponentEmbedding  = "embedding"
	ComponentCompletion = "completion"
)

// Messages reported alongside the status.
const (
	MessageReady       = "API is running and database is loaded"
	MessageDegraded    = "Database is loaded but a model provider is unreachable"
	MessageIndexAbsent = "Database not found. Please run populate_database.py first."
)

// Report aggregates health check results.
type Report struct {
	Status      Status
	IndexLoaded bool
	Message     string
	Checks      map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexChecker
	embedding  ProviderChecker
	completion ProviderChecker
}

// New creates a Service. embedding and completion can be nil.
func New(index IndexChecker, embedding, completion ProviderChecker) *Service {
	return &Service{index: index, embedding: embedding, completion: completion}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	loaded := s.index.Ready(ctx) == nil
	checks[ComponentIndex] = result(loaded)

	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}
	if s.completion != nil {
		checks[ComponentCompletion] = result(s.completion.HealthCheck(ctx) == nil)
	}

	if !loaded {
		return Report{Status: Unhealthy, IndexLoaded: false, Message: MessageIndexAbsent, Checks: checks}
	}

	for _, v := range checks {
		if v == CheckError {
			return Report{Status: Degraded, IndexLoaded: true, Message: MessageDegraded, Checks: checks}
		}
	}
	return Report{Status: Healthy, IndexLoaded: true, Message: MessageReady, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
