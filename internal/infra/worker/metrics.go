package worker

import (
	"newsroom-core/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker process
// itself: configuration fallback tracking (embedded ConfigMetrics) and
// lifecycle tracking for each of its background loops (poller,
// clustering, lifecycle sweeper, summarizer). Per-event pipeline
// telemetry (articles ingested, clusters matched, summaries generated,
// ...) lives in internal/observability/metrics and is recorded by the
// pipeline components directly, not duplicated here.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total
//   - worker_config_fallbacks_total
//   - worker_config_fallback_active
type WorkerMetrics struct {
	*config.ConfigMetrics

	// LoopRunsTotal counts how many times each background loop has
	// started and how it ended.
	// Labels: component (poller, clustering, lifecycle, summarizer,
	// batch_scheduler), status (started, stopped, crashed)
	LoopRunsTotal *prometheus.CounterVec

	// LoopUptimeSeconds is set to the Unix timestamp each component
	// last (re)started, so "time since restart" is derivable in Grafana.
	// Labels: component
	LoopUptimeSeconds *prometheus.GaugeVec
}

// NewWorkerMetrics creates a new WorkerMetrics instance. Metrics
// self-register with the default Prometheus registry via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		LoopRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_loop_runs_total",
			Help: "Total number of background loop start/stop/crash events by component",
		}, []string{"component", "status"}),

		LoopUptimeSeconds: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_loop_last_start_timestamp",
			Help: "Unix timestamp of the last start of a worker background loop",
		}, []string{"component"}),
	}
}

// MustRegister is a no-op method kept for API compatibility with the
// metrics embedded in the server wiring; registration happens via
// promauto in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto.
}

// RecordLoopStarted marks component as having started.
func (m *WorkerMetrics) RecordLoopStarted(component string) {
	m.LoopRunsTotal.WithLabelValues(component, "started").Inc()
	m.LoopUptimeSeconds.WithLabelValues(component).SetToCurrentTime()
}

// RecordLoopStopped marks component as having stopped cleanly (e.g. on
// context cancellation during graceful shutdown).
func (m *WorkerMetrics) RecordLoopStopped(component string) {
	m.LoopRunsTotal.WithLabelValues(component, "stopped").Inc()
}

// RecordLoopCrashed marks component as having exited with an error.
func (m *WorkerMetrics) RecordLoopCrashed(component string) {
	m.LoopRunsTotal.WithLabelValues(component, "crashed").Inc()
}
