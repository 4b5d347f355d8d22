package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newsroom-core/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker process: the RSS
// poller's tick interval, the shared poll interval used by the clustering
// and summarizer engines to drain their change-feed subscriptions
// (spec.md §5), the feed list path, and the health check port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the worker
// can start safely even with invalid or missing configuration.
type WorkerConfig struct {
	// FeedsPath is the filesystem path to the YAML feed list consumed by
	// internal/config.LoadFeedConfig.
	// Default: "configs/feeds.yaml"
	FeedsPath string

	// PollInterval is how often the RSS poller sweeps all configured
	// feeds (spec.md §4.3).
	// Default: 5 minutes
	PollInterval time.Duration

	// ChangeFeedPollInterval is how often the clustering engine and the
	// real-time summarizer drain their store change-feed subscriptions
	// when the store backend has no native push notification.
	// Default: 2 seconds
	ChangeFeedPollInterval time.Duration

	// HealthPort is the port for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		FeedsPath:              "configs/feeds.yaml",
		PollInterval:           5 * time.Minute,
		ChangeFeedPollInterval: 2 * time.Second,
		HealthPort:             9091,
	}
}

// Validate checks if the configuration values are valid, collecting all
// field errors before returning.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if c.FeedsPath == "" {
		errors = append(errors, fmt.Errorf("feeds path: must not be empty"))
	}

	if err := config.ValidatePositiveDuration(c.PollInterval); err != nil {
		errors = append(errors, fmt.Errorf("poll interval: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.ChangeFeedPollInterval); err != nil {
		errors = append(errors, fmt.Errorf("change feed poll interval: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This implements the fail-open strategy: start from DefaultConfig(),
// load each field from its environment variable, validate it, and fall
// back to the default (with a logged warning and a recorded metric) on
// any failure. LoadConfigFromEnv never returns an error.
//
// Environment variables:
//   - FEEDS_PATH: path to the feed list YAML (default: "configs/feeds.yaml")
//   - POLL_INTERVAL: duration string, e.g. "5m" (default: 5 minutes)
//   - CHANGE_FEED_POLL_INTERVAL: duration string, e.g. "2s" (default: 2 seconds)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	cfg.FeedsPath = config.LoadEnvString("FEEDS_PATH", cfg.FeedsPath)

	result := config.LoadEnvDuration("POLL_INTERVAL", cfg.PollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 1*time.Hour)
	})
	cfg.PollInterval = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("poll_interval")
		metrics.RecordFallback("poll_interval", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "PollInterval"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("CHANGE_FEED_POLL_INTERVAL", cfg.ChangeFeedPollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 100*time.Millisecond, 1*time.Minute)
	})
	cfg.ChangeFeedPollInterval = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("change_feed_poll_interval")
		metrics.RecordFallback("change_feed_poll_interval", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "ChangeFeedPollInterval"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
