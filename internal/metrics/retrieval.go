package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "thematicbeast"

// Retrieval Prometheus metrics.
var (
	RetrievalAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_attempts_total",
			Help:      "Retrieval attempts against LlamaCloud by outcome",
		},
		[]string{"outcome"}, // success, transient, error
	)

	RetrievalRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_retries_total",
			Help:      "Retries scheduled after a transient retrieval fault",
		},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of a single retrieval attempt",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RetrievalCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_cache_total",
			Help:      "Retrieval cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	QueryResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_results_total",
			Help:      "Result records returned by /llamaquery",
		},
		[]string{"mode", "stage"}, // stage: retrieved, returned
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalAttemptsTotal)
	prometheus.MustRegister(RetrievalRetriesTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalCacheTotal)
	prometheus.MustRegister(QueryResultsTotal)
	retrievalMetricsRegistered = true
}
