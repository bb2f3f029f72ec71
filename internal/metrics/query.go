package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Name:      "queries_total",
			Help:      "Total number of answered or failed questions",
		},
		[]string{"status"}, // "ok" / "invalid" / "index_unavailable" / "completion_failed" / "error"
	)

	FilterOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Name:      "filter_outcome_total",
			Help:      "Relevance filter outcomes",
		},
		[]string{"outcome"}, // "identity" / "filtered" / "fallback"
	)

	GameMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardrag",
			Name:      "game_matches_total",
			Help:      "Questions matched to a game by keyword",
		},
		[]string{"game"},
	)

	QuerySources = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "boardrag",
			Name:      "query_sources",
			Help:      "Number of documents used as context per question",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(FilterOutcomeTotal)
	prometheus.MustRegister(GameMatchesTotal)
	prometheus.MustRegister(QuerySources)
	queryMetricsRegistered = true
}
