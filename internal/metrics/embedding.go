package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query embedding metrics. One request is issued per question.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Query embedding requests by provider, model and status",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "boardrag",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Successful query embedding latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens reported by the embedding provider",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "total"
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Query embedding failures by cause",
		},
		[]string{"provider", "model", "error_type"}, // "api_error" / "empty_response"
	)
)

var registerEmbeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding metrics on the default registry. Safe to call repeatedly.
func RegisterEmbeddingMetrics() {
	registerEmbeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
		)
	})
}

// ObserveEmbedding records a successful embedding call. Zero token counts are skipped
// since not every provider reports usage.
func ObserveEmbedding(provider, model string, took time.Duration, promptTokens, totalTokens int) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(took.Seconds())
	if promptTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if totalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}

// EmbeddingFailed records a failed embedding call.
func EmbeddingFailed(provider, model, errorType string) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
	EmbeddingErrorsTotal.WithLabelValues(provider, model, errorType).Inc()
}
