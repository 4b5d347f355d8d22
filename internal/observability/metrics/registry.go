// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Business metrics track the news pipeline's own operations: polling,
// clustering, lifecycle transitions and summarisation (spec.md §4.3-§4.6).
var (
	// ArticlesTotal tracks total number of articles in the store.
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the store",
		},
	)

	// ClustersTotal tracks total number of story clusters in the store.
	ClustersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clusters_total",
			Help: "Total number of story clusters in the store",
		},
	)

	// FeedsPolledTotal counts feed polls, one increment per feed per tick.
	FeedsPolledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeds_polled_total",
			Help: "Total number of feed poll attempts",
		},
		[]string{"source", "category"},
	)

	// ArticlesIngestedTotal counts articles by outcome of one poll tick.
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of articles processed by the RSS poller",
		},
		[]string{"outcome"}, // outcome: new, updated, filtered
	)

	// FeedFailuresTotal counts feed fetch/parse failures.
	FeedFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_failures_total",
			Help: "Total number of feed fetch or parse failures",
		},
		[]string{"source", "reason"},
	)

	// FeedQuarantinedTotal counts feeds entering quarantine after repeated failure.
	FeedQuarantinedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_quarantined_total",
			Help: "Total number of times a feed entered quarantine",
		},
		[]string{"source"},
	)

	// FeedPollDuration measures time to poll and process one feed.
	FeedPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_poll_duration_seconds",
			Help:    "Time taken to poll and process one feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// ClusterMatchesTotal counts how clustering resolved each article.
	ClusterMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_matches_total",
			Help: "Total number of clustering decisions by match strategy",
		},
		[]string{"strategy"}, // strategy: fingerprint, fuzzy, entity, new_cluster
	)

	// ClusterWriteConflictsTotal counts ETag conflicts on cluster replace.
	ClusterWriteConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_write_conflicts_total",
			Help: "Total number of ETag conflicts retried on cluster writes",
		},
	)

	// StatusTransitionsTotal counts lifecycle transitions by edge.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Total number of cluster status transitions",
		},
		[]string{"from", "to"},
	)

	// SummariesGeneratedTotal counts summary generations by path and outcome.
	SummariesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaries_generated_total",
			Help: "Total number of LLM summary generations",
		},
		[]string{"path", "status"}, // path: realtime, batch; status: success, failure
	)

	// SummarizationDuration measures time to generate a realtime summary.
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to generate a summary",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// SummaryCostUSDTotal accumulates LLM spend by provider.
	SummaryCostUSDTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_cost_usd_total",
			Help: "Total estimated USD cost of LLM summary generation",
		},
		[]string{"provider"},
	)

	// BatchJobsTotal counts batch submissions by terminal status.
	BatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_jobs_total",
			Help: "Total number of batch summarisation jobs by terminal status",
		},
		[]string{"status"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
