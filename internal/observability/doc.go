// Package observability provides production-grade observability infrastructure
// including structured logging and Prometheus metrics.
//
// This package centralizes observability concerns to enable:
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring the news pipeline and its HTTP surface
//   - SLO tracking for the read API
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Service-level objective tracking
//
// Example usage:
//
//	import (
//	    "newsroom-core/internal/observability/logging"
//	    "newsroom-core/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordFeedPoll("bbc", "world", 120*time.Millisecond)
//	}
package observability
