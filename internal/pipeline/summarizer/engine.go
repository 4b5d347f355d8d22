// Package summarizer implements C6's event-driven path: detecting the
// cluster-change triggers spec.md §4.6 defines (entering BREAKING/VERIFIED,
// gaining a source while BREAKING, or gaining any source at all for the
// headline-only check), generating a summary/headline through a
// summarizer.Provider, and writing the result back ETag-guarded without
// disturbing last_updated/update_count. It follows the same
// change-feed-subscription and conflict-retry shape as
// internal/pipeline/clustering and internal/pipeline/lifecycle; the batch
// backfill half of C6 lives alongside it in batch.go.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"newsroom-core/internal/domain/entity"
	infrasummarizer "newsroom-core/internal/infra/summarizer"
	"newsroom-core/internal/observability/metrics"
	"newsroom-core/internal/resilience/retry"
	"newsroom-core/internal/store"
)

const (
	leaseName          = "summarizer"
	eventConcurrency   = 8
	realtimeTimeout    = 30 * time.Second
	defaultRealtimeRPM = 30
	summaryPath        = "realtime"
	headlinePath       = "realtime_headline"
)

// clusterSnapshot is the last-seen shape of a cluster, held in memory so
// handleClusterEvent can tell a genuine transition from a re-delivery of
// the same state. store.ChangeEvent carries only the current document,
// never a diff against the previous version, so this cache is the only
// way to detect "entered BREAKING" versus "is still BREAKING".
type clusterSnapshot struct {
	status      entity.Status
	sourceCount int
}

// Engine drives the real-time half of C6 off the story_clusters change
// feed.
type Engine struct {
	store        store.Store
	provider     infrasummarizer.Provider
	providerName string
	logger       *slog.Logger
	limiter      *rate.Limiter

	mu        sync.Mutex
	snapshots map[string]clusterSnapshot
}

// New builds an Engine. providerName is a short label ("claude", "openai")
// attached to metrics.RecordSummaryGenerated, since Provider itself never
// exposes which backend it wraps. realtimeRPM bounds the real-time path's
// request rate (spec.md §5: "rate-limited to a configurable
// requests-per-minute; excess demand spills to the batch path"); 0 or
// negative falls back to defaultRealtimeRPM.
func New(st store.Store, provider infrasummarizer.Provider, providerName string, realtimeRPM int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if realtimeRPM <= 0 {
		realtimeRPM = defaultRealtimeRPM
	}
	return &Engine{
		store:        st,
		provider:     provider,
		providerName: providerName,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Limit(float64(realtimeRPM)/60.0), realtimeRPM),
		snapshots:    make(map[string]clusterSnapshot),
	}
}

// Run subscribes to the story_clusters change feed and processes batches
// until ctx is canceled.
func (e *Engine) Run(ctx context.Context, pollInterval time.Duration) error {
	return e.store.SubscribeChangeFeed(ctx, "story_clusters", leaseName, pollInterval, e.handleBatch)
}

func (e *Engine) handleBatch(ctx context.Context, batch []store.ChangeEvent) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(eventConcurrency)

	for _, ev := range batch {
		if ev.Cluster == nil {
			continue
		}
		c := ev.Cluster
		eg.Go(func() error {
			e.handleClusterEvent(egCtx, c)
			return nil
		})
	}
	return eg.Wait()
}

// handleClusterEvent classifies one cluster snapshot against the last one
// seen for the same ID and fires the headline re-evaluation and/or summary
// generation triggers spec.md §4.6 defines.
func (e *Engine) handleClusterEvent(ctx context.Context, c *entity.Cluster) {
	prior, known := e.snapshot(c.ID)
	sourceCount := len(c.SourceArticles)
	gainedSource := known && sourceCount > prior.sourceCount
	statusChanged := known && prior.status != c.Status
	enteredHighValue := c.Status == entity.StatusBreaking || c.Status == entity.StatusVerified

	e.updateSnapshot(c.ID, clusterSnapshot{status: c.Status, sourceCount: sourceCount})

	// Headline re-evaluation fires on every source addition, independent
	// of status (spec.md §4.6 "Headline re-evaluation").
	if gainedSource {
		e.reevaluateHeadline(ctx, c)
	}

	triggerSummary := false
	switch {
	case statusChanged && enteredHighValue:
		triggerSummary = true
	case known && gainedSource && c.Status == entity.StatusBreaking:
		triggerSummary = true
	case !known && enteredHighValue && c.Summary == nil:
		// Cold cache (process restart): there is no prior snapshot to
		// diff against, so treat an already-high-value cluster that has
		// never been summarised as a trigger. A cluster that already
		// carries a summary is left to the batch path rather than
		// regenerated on every restart.
		triggerSummary = true
	}

	if triggerSummary {
		e.generateSummary(ctx, c)
	}
}

func (e *Engine) snapshot(id string) (clusterSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.snapshots[id]
	return s, ok
}

func (e *Engine) updateSnapshot(id string, s clusterSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots[id] = s
}

// reevaluateHeadline runs the lightweight "keep or replace" headline check
// against the most recently added member article, which clustering's
// applyAdd always appends last.
func (e *Engine) reevaluateHeadline(ctx context.Context, c *entity.Cluster) {
	if len(c.SourceArticles) == 0 {
		return
	}
	newest := c.SourceArticles[len(c.SourceArticles)-1]
	article, err := e.store.GetArticle(ctx, newest)
	if err != nil {
		e.logger.Error("summarizer: headline reevaluation article lookup failed",
			slog.String("cluster_id", c.ID), slog.Any("error", err))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, realtimeTimeout)
	defer cancel()
	start := time.Now()
	result, err := e.provider.ReevaluateHeadline(reqCtx, infrasummarizer.HeadlineRequest{
		CurrentHeadline: c.Title,
		NewArticleTitle: article.Title,
	})
	if err != nil {
		e.logger.Error("summarizer: headline reevaluation failed",
			slog.String("cluster_id", c.ID), slog.Any("error", err))
		metrics.RecordSummaryGenerated(headlinePath, false, time.Since(start), 0, e.providerName)
		return
	}
	metrics.RecordSummaryGenerated(headlinePath, true, time.Since(start), 0, e.providerName)
	if !result.Changed {
		return
	}
	if err := e.applyHeadline(ctx, c.ID, string(c.Category), result.Headline); err != nil {
		e.logger.Error("summarizer: headline apply failed",
			slog.String("cluster_id", c.ID), slog.Any("error", err))
	}
}

// applyHeadline writes a re-evaluated headline under the same ETag-guarded
// retry budget the clustering engine uses, without touching last_updated
// or update_count (spec.md §9's timestamp-hygiene rule: summary/headline
// writes are not membership changes).
func (e *Engine) applyHeadline(ctx context.Context, clusterID, category, headline string) error {
	cfg := retry.ClusterConflictConfig()
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		c, etag, err := e.store.ReadCluster(ctx, clusterID, category)
		if err != nil {
			return err
		}
		if c.Title == headline {
			return nil // already applied, e.g. by a concurrent redelivery
		}
		c.Title = headline

		if _, err := e.store.ReplaceCluster(ctx, c, etag); err == nil {
			return nil
		} else if !errors.Is(err, entity.ErrConflict) {
			return err
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
	return fmt.Errorf("cluster %s: %w after %d attempts", clusterID, entity.ErrConflict, cfg.MaxAttempts)
}

// generateSummary runs the full summary/headline generation call and
// applies the result, subject to the real-time rate limiter. A cluster
// that misses the limiter is left alone: it still satisfies the batch
// path's eligibility query (summary missing) and will be picked up there
// within the next 30-minute cycle (spec.md §5: "excess demand spills to
// the batch path").
func (e *Engine) generateSummary(ctx context.Context, c *entity.Cluster) {
	if !e.limiter.Allow() {
		e.logger.Debug("summarizer: realtime rate limit reached, deferring to batch path",
			slog.String("cluster_id", c.ID))
		return
	}

	start := time.Now()
	articles := e.fetchMemberArticles(ctx, c)
	if len(articles) == 0 {
		return
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].PublishedAt.Before(articles[j].PublishedAt) })
	sample := infrasummarizer.RepresentativeArticles(articles)

	reqCtx, cancel := context.WithTimeout(ctx, realtimeTimeout)
	defer cancel()
	result, err := e.provider.GenerateSummary(reqCtx, infrasummarizer.SummaryRequest{
		ClusterID:       c.ID,
		CurrentHeadline: c.Title,
		Articles:        sample,
	})
	if err != nil {
		e.logger.Error("summarizer: generation failed", slog.String("cluster_id", c.ID), slog.Any("error", err))
		metrics.RecordSummaryGenerated(summaryPath, false, time.Since(start), 0, e.providerName)
		return
	}

	if err := e.applySummary(ctx, c.ID, string(c.Category), result, false); err != nil {
		e.logger.Error("summarizer: apply failed", slog.String("cluster_id", c.ID), slog.Any("error", err))
		metrics.RecordSummaryGenerated(summaryPath, false, time.Since(start), result.CostUSD, e.providerName)
		return
	}
	metrics.RecordSummaryGenerated(summaryPath, true, time.Since(start), result.CostUSD, e.providerName)
}

func (e *Engine) fetchMemberArticles(ctx context.Context, c *entity.Cluster) []infrasummarizer.SourceArticleInput {
	out := make([]infrasummarizer.SourceArticleInput, 0, len(c.SourceArticles))
	for _, id := range c.SourceArticles {
		a, err := e.store.GetArticle(ctx, id)
		if err != nil {
			e.logger.Warn("summarizer: member article lookup failed",
				slog.String("cluster_id", c.ID), slog.String("article_id", id), slog.Any("error", err))
			continue
		}
		out = append(out, infrasummarizer.SourceArticleInput{
			Source:      a.Source,
			Title:       a.Title,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
		})
	}
	return out
}

// applySummary writes a generated summary (and, if the model proposed a
// different one, a new headline) under the cluster's ETag, retrying on
// conflict. It never touches last_updated or update_count: a summary
// regeneration is not a membership change (spec.md §9).
func (e *Engine) applySummary(ctx context.Context, clusterID, category string, result *infrasummarizer.SummaryResult, batchProcessed bool) error {
	cfg := retry.ClusterConflictConfig()
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		c, etag, err := e.store.ReadCluster(ctx, clusterID, category)
		if err != nil {
			return err
		}

		version := 1
		if c.Summary != nil {
			version = c.Summary.Version + 1
		}
		c.Summary = &entity.SummaryVersion{
			Version:          version,
			Text:             result.Summary,
			GeneratedAt:      time.Now().UTC(),
			Model:            result.Model,
			WordCount:        len(strings.Fields(result.Summary)),
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			CachedTokens:     result.CachedTokens,
			CostUSD:          result.CostUSD,
			BatchProcessed:   batchProcessed,
			GenerationTimeMS: result.GenerationTimeMS,
		}
		if result.Headline != "" {
			c.Title = result.Headline
		}

		if _, err := e.store.ReplaceCluster(ctx, c, etag); err == nil {
			return nil
		} else if !errors.Is(err, entity.ErrConflict) {
			return err
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
	return fmt.Errorf("cluster %s: %w after %d attempts", clusterID, entity.ErrConflict, cfg.MaxAttempts)
}

func nextDelay(delay time.Duration, cfg retry.Config) time.Duration {
	delay = time.Duration(float64(delay) * cfg.Multiplier)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * cfg.JitterFraction * float64(delay))
	return delay + jitter
}
