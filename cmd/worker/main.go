package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"newsroom-core/internal/config"
	"newsroom-core/internal/infra/db"
	infrasummarizer "newsroom-core/internal/infra/summarizer"
	workerPkg "newsroom-core/internal/infra/worker"
	pkgconfig "newsroom-core/internal/pkg/config"
	"newsroom-core/internal/pipeline/clustering"
	"newsroom-core/internal/pipeline/lifecycle"
	"newsroom-core/internal/pipeline/poller"
	pipelinesummarizer "newsroom-core/internal/pipeline/summarizer"
	"newsroom-core/internal/store/postgres"
)

// The worker process runs C1-C6 of spec.md (§4.3-§4.6): the RSS poller,
// the clustering engine, the cluster lifecycle sweeper, and both halves
// of the summarizer (real-time and batch). Each runs as an independent
// background loop over the shared store; none of them serves HTTP
// traffic directly (that is cmd/api's job), but the process does carry
// its own health/readiness and Prometheus metrics endpoints so it can be
// deployed and monitored the same way cmd/api is.
func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)

	feeds, err := config.LoadFeedConfig(cfg.FeedsPath)
	if err != nil {
		logger.Error("failed to load feed configuration", slog.String("path", cfg.FeedsPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("loaded feed configuration", slog.Int("feed_count", len(feeds)), slog.String("path", cfg.FeedsPath))

	st := postgres.New(database)
	httpClient := createHTTPClient()

	provider, providerName := createSummarizer(logger)
	batchProvider, hasBatch := provider.(pipelinesummarizer.BatchProvider)

	rssPoller := poller.New(feeds, httpClient, st, logger)
	if err := rssPoller.LoadState(ctx); err != nil {
		logger.Error("failed to load poller state", slog.Any("error", err))
		os.Exit(1)
	}

	clusteringEngine := clustering.New(st, logger)
	sweeper := lifecycle.NewSweeper(st, logger)
	summarizerEngine := pipelinesummarizer.New(st, provider, providerName, getRealtimeRPM(), logger)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	metricsServer := startMetricsServer(ctx, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		err := healthServer.Start(egCtx)
		if err != nil && errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	eg.Go(func() error {
		return runLoop(egCtx, workerMetrics, logger, "poller", func(c context.Context) error {
			return rssPoller.Run(c, cfg.PollInterval)
		})
	})

	eg.Go(func() error {
		return runLoop(egCtx, workerMetrics, logger, "clustering", func(c context.Context) error {
			return clusteringEngine.Run(c, cfg.ChangeFeedPollInterval)
		})
	})

	eg.Go(func() error {
		return runLoop(egCtx, workerMetrics, logger, "lifecycle_sweeper", sweeper.Run)
	})

	eg.Go(func() error {
		return runLoop(egCtx, workerMetrics, logger, "summarizer", func(c context.Context) error {
			return summarizerEngine.Run(c, cfg.ChangeFeedPollInterval)
		})
	})

	if hasBatch {
		batchScheduler := pipelinesummarizer.NewBatchScheduler(st, batchProvider, logger)
		eg.Go(func() error {
			return runLoop(egCtx, workerMetrics, logger, "batch_scheduler", batchScheduler.Run)
		})
		logger.Info("batch summarization scheduler enabled", slog.String("provider", providerName))
	} else {
		logger.Info("batch summarization scheduler disabled: provider does not support batch submission",
			slog.String("provider", providerName))
	}

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("feeds_path", cfg.FeedsPath),
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.Duration("change_feed_poll_interval", cfg.ChangeFeedPollInterval),
		slog.Int("health_port", cfg.HealthPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping worker loops")
		healthServer.SetReady(false)
		cancel()
	}()

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// runLoop runs fn, recording its start/stop/crash in workerMetrics.
// Context cancellation (the normal shutdown path) is reported as a clean
// stop, not a crash.
func runLoop(ctx context.Context, metrics *workerPkg.WorkerMetrics, logger *slog.Logger, component string, fn func(context.Context) error) error {
	metrics.RecordLoopStarted(component)
	err := fn(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.RecordLoopCrashed(component)
		logger.Error("worker loop exited with error", slog.String("component", component), slog.Any("error", err))
		return err
	}
	metrics.RecordLoopStopped(component)
	logger.Info("worker loop stopped", slog.String("component", component))
	return nil
}

// initLogger initializes and returns a structured logger based on
// environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies the (idempotent)
// schema migration, mirroring cmd/api's startup so either binary can run
// first in a fresh environment.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// createSummarizer builds the infrasummarizer.Provider selected by the
// SUMMARIZER_TYPE environment variable ("claude" or "openai", default
// "claude"). Only OpenAI's client also satisfies
// pipelinesummarizer.BatchProvider; main checks this with a type
// assertion rather than branching on summarizerType directly; the mapping
// from env var to provider is private to this function.
func createSummarizer(logger *slog.Logger) (infrasummarizer.Provider, string) {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "claude"
	}

	switch summarizerType {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
			os.Exit(1)
		}
		logger.Info("using Claude API for summarization", slog.String("type", "claude"))
		return infrasummarizer.NewClaude(apiKey), "claude"
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
			os.Exit(1)
		}
		oaConfig, err := infrasummarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("using OpenAI API for summarization", slog.String("type", "openai"))
		return infrasummarizer.NewOpenAI(apiKey, oaConfig), "openai"
	default:
		logger.Error("invalid SUMMARIZER_TYPE", slog.String("type", summarizerType), slog.String("expected", "claude or openai"))
		os.Exit(1)
		return nil, ""
	}
}

// createHTTPClient creates an HTTP client with timeouts and connection
// pooling for the RSS poller. TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// getRealtimeRPM reads SUMMARIZER_REALTIME_RPM, falling back to the
// summarizer engine's own default (defaultRealtimeRPM) on any invalid or
// missing value.
func getRealtimeRPM() int {
	result := pkgconfig.LoadEnvInt("SUMMARIZER_REALTIME_RPM", 0, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 600)
	})
	return result.Value.(int)
}

