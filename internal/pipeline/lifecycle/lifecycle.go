// Package lifecycle implements C5: the cluster status state machine
// (spec.md §4.5) and its periodic sweeper. EvaluateStatus is invoked by
// the clustering engine (C4) on every membership change; Sweeper runs
// independently on a robfig/cron/v3 schedule, following the same cron
// library the teacher's cmd/worker uses for its own periodic jobs.
package lifecycle

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/observability/metrics"
	"newsroom-core/internal/resilience/retry"
	"newsroom-core/internal/store"
)

const (
	breakingFreshWindow  = 30 * time.Minute
	breakingIdleCeiling  = 90 * time.Minute
	verifiedArchiveAfter = 30 * 24 * time.Hour
	sweepSchedule        = "@every 5m"
	sweepBatchLimit      = 500
)

// EvaluateStatus implements the spec.md §4.5 update-time transition table.
// age is time since the cluster's first_seen; idle is time since
// last_updated as it stood *before* this update (spec.md §4.5's
// "idle = now - last_updated_before_this_update"). isGainingSources is
// always true at the clustering engine's call site (membership additions
// are only ever evaluated after the idempotence check has already passed),
// but is threaded through explicitly so the rule stays legible on its own
// rather than relying on a caller-side invariant.
func EvaluateStatus(sources int, age, idle time.Duration, isGainingSources bool) entity.Status {
	switch {
	case sources >= 3 && age < breakingFreshWindow:
		return entity.StatusBreaking
	case sources >= 3 && isGainingSources && idle < breakingFreshWindow:
		return entity.StatusBreaking
	case sources >= 3:
		return entity.StatusVerified
	case sources == 2:
		return entity.StatusDeveloping
	default:
		return entity.StatusMonitoring
	}
}

// Sweeper periodically demotes BREAKING clusters that have gone quiet and
// archives stale VERIFIED clusters (spec.md §4.5 second bullet).
type Sweeper struct {
	store  store.Store
	logger *slog.Logger
}

// NewSweeper builds a Sweeper over st.
func NewSweeper(st store.Store, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: st, logger: logger}
}

// Run starts the cron-scheduled sweep and blocks until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, func() { s.sweepOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// sweepOnce runs one sweep pass: BREAKING -> VERIFIED on 90 min idle, then
// VERIFIED -> ARCHIVED on 30 days idle. Both passes use ETag-guarded
// replace with the same conflict-retry budget the clustering engine uses,
// since the sweeper races the clustering engine on the same clusters.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	if err := s.transition(ctx, entity.StatusBreaking, entity.StatusVerified, now, breakingIdleCeiling); err != nil {
		s.logger.Error("sweep: breaking->verified failed", slog.Any("error", err))
	}
	if err := s.transition(ctx, entity.StatusVerified, entity.StatusArchived, now, verifiedArchiveAfter); err != nil {
		s.logger.Error("sweep: verified->archived failed", slog.Any("error", err))
	}
}

func (s *Sweeper) transition(ctx context.Context, from, to entity.Status, now time.Time, idleAfter time.Duration) error {
	clusters, err := s.store.QueryByStatus(ctx, from, sweepBatchLimit)
	if err != nil {
		return err
	}

	for _, c := range clusters {
		if now.Sub(c.LastUpdated) < idleAfter {
			continue
		}
		if err := s.applyTransition(ctx, c.ID, string(c.Category), from, to); err != nil {
			s.logger.Error("sweep: cluster transition failed",
				slog.String("cluster_id", c.ID), slog.Any("error", err))
		}
	}
	return nil
}

// applyTransition re-reads the cluster before writing so a status change
// applied concurrently by the clustering engine is never clobbered; it
// retries on ETag conflict with the same budget as C4's writes.
func (s *Sweeper) applyTransition(ctx context.Context, clusterID, category string, from, to entity.Status) error {
	cfg := retry.ClusterConflictConfig()
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		c, etag, err := s.store.ReadCluster(ctx, clusterID, category)
		if err != nil {
			return err
		}
		if c.Status != from {
			return nil // already moved on, nothing to do
		}
		c.Status = to

		if _, err := s.store.ReplaceCluster(ctx, c, etag); err == nil {
			metrics.RecordStatusTransition(string(from), string(to))
			return nil
		} else if attempt == cfg.MaxAttempts {
			return err
		}

		metrics.RecordClusterWriteConflict()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = nextDelay(delay, cfg)
	}
	return nil
}

func nextDelay(delay time.Duration, cfg retry.Config) time.Duration {
	delay = time.Duration(float64(delay) * cfg.Multiplier)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * cfg.JitterFraction * float64(delay))
	return delay + jitter
}
