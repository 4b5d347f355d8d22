// Package clustering implements C4: matching each newly fetched article to
// at most one existing story cluster, or starting a new one, following the
// cascade in spec.md §4.4. It consumes the articles change feed the same
// way the teacher's usecase/fetch package drove summarisation fan-out —
// bounded-concurrency goroutines coordinated with golang.org/x/sync/errgroup.
package clustering

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/observability/metrics"
	"newsroom-core/internal/pipeline/lifecycle"
	"newsroom-core/internal/resilience/retry"
	"newsroom-core/internal/store"
)

const (
	candidateWindow  = 48 * time.Hour
	candidateLimit   = 500
	batchConcurrency = 8
	leaseName        = "clustering"
)

// Engine matches articles into story clusters (spec.md §4.4). It is built
// over the full store.Store, like poller.Poller, since it needs the
// article, cluster and change-feed facets together.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

// New builds a clustering Engine over st.
func New(st store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// Run subscribes to the raw_articles change feed and processes batches
// until ctx is canceled.
func (e *Engine) Run(ctx context.Context, pollInterval time.Duration) error {
	return e.store.SubscribeChangeFeed(ctx, "raw_articles", leaseName, pollInterval, e.handleBatch)
}

// handleBatch processes up to len(batch) articles concurrently, bounded by
// batchConcurrency (spec.md §5: the clustering worker processes change-feed
// batches of up to N documents). A per-article error is logged and does
// not fail the batch: the change feed's at-least-once redelivery will
// present the article again.
func (e *Engine) handleBatch(ctx context.Context, batch []store.ChangeEvent) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(batchConcurrency)

	for _, ev := range batch {
		if ev.Article == nil {
			continue
		}
		article := ev.Article
		eg.Go(func() error {
			if err := e.ProcessArticle(egCtx, article); err != nil {
				e.logger.Error("failed to cluster article",
					slog.String("article_id", article.ID), slog.Any("error", err))
			}
			return nil
		})
	}
	return eg.Wait()
}

// ProcessArticle runs the spec.md §4.4 matching cascade for a, then either
// adds it to the chosen cluster or creates a new one.
func (e *Engine) ProcessArticle(ctx context.Context, a *entity.Article) error {
	since := time.Now().Add(-candidateWindow)
	candidates, err := e.store.QueryRecentClusters(ctx, string(a.Category), since, candidateLimit)
	if err != nil {
		return err
	}

	chosen, strategy := selectCandidate(a, candidates)
	metrics.RecordClusterMatch(string(strategy))

	if chosen == nil {
		return e.createCluster(ctx, a)
	}
	return e.addToCluster(ctx, chosen.ID, a)
}

func (e *Engine) createCluster(ctx context.Context, a *entity.Article) error {
	now := time.Now().UTC()
	c := &entity.Cluster{
		ID:                newClusterID(now, a.ID),
		Category:          a.Category,
		Title:             a.Title,
		SourceArticles:    []string{a.ID},
		Status:            entity.StatusMonitoring,
		VerificationLevel: entity.VerificationLevel(1),
		FirstSeen:         now,
		LastUpdated:       now,
		UpdateCount:       1,
		Entities:          a.Entities,
		Fingerprint:       a.Fingerprint,
	}
	_, err := e.store.CreateCluster(ctx, c)
	if errors.Is(err, entity.ErrConflict) {
		// Generated ID collided with an existing cluster (extremely
		// unlikely given the timestamp+hash scheme, but the store
		// contract allows it); fold into the same article instead of
		// dropping it.
		return e.addToCluster(ctx, c.ID, a)
	}
	return err
}

// newClusterID builds the "time-prefixed stable string" cluster ID
// spec.md §3 calls for: a creation timestamp (for readability/ordering)
// plus a short hash of the seed article's ID (for uniqueness among
// clusters created in the same second).
func newClusterID(now time.Time, seedArticleID string) string {
	sum := md5.Sum([]byte(seedArticleID))
	return "c_" + now.UTC().Format("20060102T150405") + "_" + hex.EncodeToString(sum[:])[:8]
}

// addToCluster adds a to the cluster identified by clusterID under the
// ETag-guarded replace protocol of spec.md §4.4 step 5, re-reading and
// retrying on conflict up to retry.ClusterConflictConfig's attempt budget.
func (e *Engine) addToCluster(ctx context.Context, clusterID string, a *entity.Article) error {
	cfg := retry.ClusterConflictConfig()
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		c, etag, err := e.store.ReadCluster(ctx, clusterID, string(a.Category))
		if err != nil {
			return err
		}

		if c.HasArticle(a.ID) {
			return nil // idempotent: change-feed redelivery, spec.md §4.4 step 5
		}

		e.applyAdd(ctx, c, a)

		_, err = e.store.ReplaceCluster(ctx, c, etag)
		if err == nil {
			return nil
		}
		if !errors.Is(err, entity.ErrConflict) {
			return err
		}

		metrics.RecordClusterWriteConflict()
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = nextDelay(delay, cfg)
	}

	return fmt.Errorf("cluster %s: %w after %d attempts", clusterID, entity.ErrConflict, cfg.MaxAttempts)
}

// applyAdd mutates c in place to add a, following the reference-aliasing
// fix of spec.md §9: prev_count is captured from a freshly built slice,
// never from the stored sequence, before the append that grows it.
func (e *Engine) applyAdd(ctx context.Context, c *entity.Cluster, a *entity.Article) {
	members := append([]string(nil), c.SourceArticles...)
	prevCount := len(members)
	members = append(members, a.ID)

	now := time.Now().UTC()
	age := now.Sub(c.FirstSeen)
	idle := now.Sub(c.LastUpdated) // last_updated as it stood before this update

	c.SourceArticles = members
	isGainingSources := len(c.SourceArticles) > prevCount

	sourceOf := e.sourceLookup(ctx, c.SourceArticles)
	unique := c.UniqueSourceCount(sourceOf)

	c.VerificationLevel = entity.VerificationLevel(unique)
	c.Status = lifecycle.EvaluateStatus(unique, age, idle, isGainingSources)
	c.LastUpdated = now
	c.UpdateCount++

	if a.Category == c.Category {
		c.Entities = mergeEntities(c.Entities, a.Entities)
	}
}

// sourceLookup resolves each member article ID to its source token so
// UniqueSourceCount can dedupe by outlet rather than by article ID.
// Lookups that fail (article since pruned) fall back to the ID itself, so
// membership never silently vanishes from the count.
func (e *Engine) sourceLookup(ctx context.Context, articleIDs []string) map[string]string {
	out := make(map[string]string, len(articleIDs))
	for _, id := range articleIDs {
		art, err := e.store.GetArticle(ctx, id)
		if err != nil {
			out[id] = id
			continue
		}
		out[id] = art.Source
	}
	return out
}

// mergeEntities folds newEntities into existing by text, summing counts,
// keeping the cluster's entity set representative of its full membership
// rather than only its seed article.
func mergeEntities(existing, newEntities []entity.EntityMention) []entity.EntityMention {
	byText := make(map[string]int, len(existing)+len(newEntities))
	order := make([]string, 0, len(existing)+len(newEntities))
	for _, m := range existing {
		if _, ok := byText[m.Text]; !ok {
			order = append(order, m.Text)
		}
		byText[m.Text] += m.Count
	}
	for _, m := range newEntities {
		if _, ok := byText[m.Text]; !ok {
			order = append(order, m.Text)
		}
		byText[m.Text] += m.Count
	}
	out := make([]entity.EntityMention, 0, len(order))
	for _, text := range order {
		out = append(out, entity.EntityMention{Text: text, Count: byText[text]})
	}
	return out
}

func nextDelay(delay time.Duration, cfg retry.Config) time.Duration {
	delay = time.Duration(float64(delay) * cfg.Multiplier)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * cfg.JitterFraction * float64(delay))
	return delay + jitter
}
