package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"newsroom-core/internal/domain/entity"
	infrasummarizer "newsroom-core/internal/infra/summarizer"
	"newsroom-core/internal/observability/metrics"
	"newsroom-core/internal/store"
)

const (
	batchSchedule       = "@every 30m"
	batchBackfillWindow = 48 * time.Hour
	batchSubmitTimeout  = 60 * time.Second
)

// BatchProvider is the narrow slice of an LLM provider's batch surface the
// scheduler needs: submit, poll, fetch. summarizer.OpenAI satisfies this
// implicitly; it is declared here rather than in the infra package so the
// scheduler can be tested against a fake without importing go-openai.
type BatchProvider interface {
	SubmitBatch(ctx context.Context, items []infrasummarizer.BatchSummaryRequest) (string, error)
	PollBatch(ctx context.Context, batchID string) (entity.BatchStatus, bool, error)
	FetchBatchResults(ctx context.Context, batchID string) ([]infrasummarizer.BatchSummaryResult, error)
}

// BatchScheduler runs the C6 batch path (spec.md §4.6): every 30 minutes
// it applies results from outstanding batches, then submits a new one
// covering freshly eligible clusters.
type BatchScheduler struct {
	store    store.Store
	provider BatchProvider
	logger   *slog.Logger
}

// NewBatchScheduler builds a BatchScheduler over st and provider.
func NewBatchScheduler(st store.Store, provider BatchProvider, logger *slog.Logger) *BatchScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchScheduler{store: st, provider: provider, logger: logger}
}

// Run starts the cron-scheduled batch sweep and blocks until ctx is
// canceled, mirroring lifecycle.Sweeper's cron wiring.
func (b *BatchScheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(batchSchedule, func() { b.sweepOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (b *BatchScheduler) sweepOnce(ctx context.Context) {
	if err := b.applyOutstanding(ctx); err != nil {
		b.logger.Error("batch: applying outstanding jobs failed", slog.Any("error", err))
	}
	if err := b.submitNewBatch(ctx); err != nil {
		b.logger.Error("batch: submitting new batch failed", slog.Any("error", err))
	}
}

// applyOutstanding polls every batch that has not yet reached a terminal
// status, applying results from any that completed (spec.md §4.6 batch
// path step 1).
func (b *BatchScheduler) applyOutstanding(ctx context.Context) error {
	for _, status := range []entity.BatchStatus{entity.BatchSubmitted, entity.BatchInProgress} {
		jobs, err := b.store.ListBatchJobsByStatus(ctx, status)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			b.pollOne(ctx, job)
		}
	}
	return nil
}

func (b *BatchScheduler) pollOne(ctx context.Context, job *entity.BatchJob) {
	status, done, err := b.provider.PollBatch(ctx, job.BatchID)
	if err != nil {
		b.logger.Error("batch: poll failed", slog.String("batch_id", job.BatchID), slog.Any("error", err))
		return
	}

	if !done {
		if status != job.Status {
			job.Status = status
			if err := b.store.UpsertBatchJob(ctx, job); err != nil {
				b.logger.Error("batch: status update failed", slog.String("batch_id", job.BatchID), slog.Any("error", err))
			}
		}
		return
	}

	job.Status = status
	job.EndedAt = time.Now().UTC()

	if status == entity.BatchCompleted {
		results, err := b.provider.FetchBatchResults(ctx, job.BatchID)
		if err != nil {
			b.logger.Error("batch: fetch results failed", slog.String("batch_id", job.BatchID), slog.Any("error", err))
			job.Status = entity.BatchFailed
		} else {
			b.applyResults(ctx, job, results)
		}
	}

	if err := b.store.UpsertBatchJob(ctx, job); err != nil {
		b.logger.Error("batch: terminal update failed", slog.String("batch_id", job.BatchID), slog.Any("error", err))
	}
	metrics.RecordBatchJobTerminal(string(job.Status))
}

// applyResults applies each completed line to its cluster, skipping any
// cluster whose source_articles count has changed since submission
// (spec.md §4.6: "skipping clusters whose source_articles have changed
// materially") since its summary would already be stale or superseded by
// the real-time path.
func (b *BatchScheduler) applyResults(ctx context.Context, job *entity.BatchJob, results []infrasummarizer.BatchSummaryResult) {
	for _, r := range results {
		job.RequestCount++

		if r.Err != nil || r.Result == nil {
			job.ErroredCount++
			b.logger.Warn("batch: result error", slog.String("cluster_id", r.ClusterID), slog.Any("error", r.Err))
			continue
		}

		category := job.ClusterCategories[r.ClusterID]
		c, etag, err := b.store.ReadCluster(ctx, r.ClusterID, category)
		if err != nil {
			job.ErroredCount++
			b.logger.Error("batch: cluster lookup failed", slog.String("cluster_id", r.ClusterID), slog.Any("error", err))
			continue
		}

		if submittedCount, ok := job.SourceCountsAtSubmission[r.ClusterID]; ok && len(c.SourceArticles) != submittedCount {
			b.logger.Info("batch: skipping materially changed cluster",
				slog.String("cluster_id", r.ClusterID),
				slog.Int("submitted_sources", submittedCount),
				slog.Int("current_sources", len(c.SourceArticles)))
			continue
		}

		if err := b.applyResult(ctx, c, etag, r.Result); err != nil {
			job.ErroredCount++
			b.logger.Error("batch: apply failed", slog.String("cluster_id", r.ClusterID), slog.Any("error", err))
			continue
		}
		job.SucceededCount++
		job.TotalCostUSD += r.Result.CostUSD
	}
}

// applyResult performs a single ETag-guarded write of a batch-generated
// summary. Unlike the real-time path it does not retry on conflict: if the
// cluster moved on since the read a moment ago in applyResults, the next
// 30-minute cycle's eligibility query will simply pick it up again (its
// summary is still missing).
func (b *BatchScheduler) applyResult(ctx context.Context, c *entity.Cluster, etag store.ETag, result *infrasummarizer.SummaryResult) error {
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
		BatchProcessed:   true,
		GenerationTimeMS: result.GenerationTimeMS,
	}
	if result.Headline != "" {
		c.Title = result.Headline
	}
	_, err := b.store.ReplaceCluster(ctx, c, etag)
	return err
}

// submitNewBatch selects up to BatchMaxClusters eligible clusters
// (status != MONITORING, summary missing, first_seen within the backfill
// window) and submits them as one batch (spec.md §4.6 batch path step 2).
func (b *BatchScheduler) submitNewBatch(ctx context.Context) error {
	eligible, err := b.selectEligibleClusters(ctx)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return nil
	}

	items := make([]infrasummarizer.BatchSummaryRequest, 0, len(eligible))
	sourceCounts := make(map[string]int, len(eligible))
	categories := make(map[string]string, len(eligible))
	clusterIDs := make([]string, 0, len(eligible))

	for _, c := range eligible {
		articles := b.fetchMemberArticles(ctx, c)
		if len(articles) == 0 {
			continue
		}
		sample := infrasummarizer.RepresentativeArticles(articles)
		items = append(items, infrasummarizer.BatchSummaryRequest{
			ClusterID: c.ID,
			Request: infrasummarizer.SummaryRequest{
				ClusterID:       c.ID,
				CurrentHeadline: c.Title,
				Articles:        sample,
			},
		})
		sourceCounts[c.ID] = len(c.SourceArticles)
		categories[c.ID] = string(c.Category)
		clusterIDs = append(clusterIDs, c.ID)
	}
	if len(items) == 0 {
		return nil
	}

	submitCtx, cancel := context.WithTimeout(ctx, batchSubmitTimeout)
	defer cancel()
	batchID, err := b.provider.SubmitBatch(submitCtx, items)
	if err != nil {
		return err
	}

	job := &entity.BatchJob{
		BatchID:                  batchID,
		Status:                   entity.BatchSubmitted,
		ClusterIDs:               clusterIDs,
		SubmittedAt:              time.Now().UTC(),
		SourceCountsAtSubmission: sourceCounts,
		ClusterCategories:        categories,
	}
	return b.store.UpsertBatchJob(ctx, job)
}

// selectEligibleClusters gathers candidates across every non-MONITORING
// status, since store.ClusterStore.QueryByStatus only filters one status
// at a time.
func (b *BatchScheduler) selectEligibleClusters(ctx context.Context) ([]*entity.Cluster, error) {
	cutoff := time.Now().Add(-batchBackfillWindow)
	statuses := []entity.Status{
		entity.StatusDeveloping,
		entity.StatusVerified,
		entity.StatusBreaking,
		entity.StatusArchived,
	}

	var eligible []*entity.Cluster
	for _, status := range statuses {
		clusters, err := b.store.QueryByStatus(ctx, status, entity.BatchMaxClusters)
		if err != nil {
			return nil, err
		}
		for _, c := range clusters {
			if c.Summary != nil {
				continue
			}
			if c.FirstSeen.Before(cutoff) {
				continue
			}
			eligible = append(eligible, c)
			if len(eligible) >= entity.BatchMaxClusters {
				return eligible, nil
			}
		}
	}
	return eligible, nil
}

func (b *BatchScheduler) fetchMemberArticles(ctx context.Context, c *entity.Cluster) []infrasummarizer.SourceArticleInput {
	out := make([]infrasummarizer.SourceArticleInput, 0, len(c.SourceArticles))
	for _, id := range c.SourceArticles {
		a, err := b.store.GetArticle(ctx, id)
		if err != nil {
			b.logger.Warn("batch: member article lookup failed",
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
