package poller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"newsroom-core/internal/config"
	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/fingerprint"
	"newsroom-core/internal/infra/scraper"
	"newsroom-core/internal/observability/metrics"
	"newsroom-core/internal/store"
)

// defaultLanguage is used for every article: the feed configuration and
// spec.md §4.3 carry no per-article language detection component.
const defaultLanguage = "en"

// fetchTimeout bounds a single feed fetch, per spec.md §4.3 ("fetch with
// a short timeout").
const fetchTimeout = 10 * time.Second

// Fetcher is the subset of scraper.RSSFetcher the poller depends on,
// narrowed so tests can substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]scraper.FeedItem, error)
}

// Poller implements the RSS/Atom poller of spec.md §4.3.
type Poller struct {
	fetcher Fetcher
	store   store.ArticleStore
	states  store.FeedStateStore
	logger  *slog.Logger

	mu        sync.Mutex
	sched     *scheduler
	stateByID map[string]*entity.FeedPollState
}

// New builds a Poller over the given static feed list. client is shared
// across every fetch to reuse connections and the RSSFetcher's own
// circuit breaker.
func New(feeds []config.FeedConfig, client *http.Client, st store.Store, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:   scraper.NewRSSFetcher(client),
		store:     st,
		states:    st,
		logger:    logger,
		sched:     newScheduler(feeds),
		stateByID: make(map[string]*entity.FeedPollState),
	}
}

// LoadState seeds the in-memory poll-state cache from the store so a
// restart resumes cooldown/quarantine tracking instead of re-polling
// every feed immediately (spec.md §5: the poller owns this state
// exclusively, so no cross-worker contention has to be resolved here).
func (p *Poller) LoadState(ctx context.Context) error {
	states, err := p.states.ListFeedStates(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range states {
		p.stateByID[s.Source] = s
	}
	return nil
}

// Run ticks every interval until ctx is canceled, polling up to
// feedsPerTick feeds per tick.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick selects this tick's feeds and polls each one, recording the
// new/updated/filtered/failure counters spec.md §4.3 requires.
func (p *Poller) Tick(ctx context.Context) {
	now := time.Now().UTC()

	p.mu.Lock()
	feeds := p.sched.selectTick(now, p.stateByID)
	p.mu.Unlock()

	var newCount, updatedCount, filteredCount int
	for _, feed := range feeds {
		n, u, f := p.pollFeed(ctx, feed, now)
		newCount += n
		updatedCount += u
		filteredCount += f
	}
	metrics.RecordArticlesIngested(newCount, updatedCount, filteredCount)
}

func (p *Poller) pollFeed(ctx context.Context, feed config.FeedConfig, now time.Time) (newCount, updatedCount, filteredCount int) {
	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	items, err := p.fetcher.Fetch(fetchCtx, feed.URL)
	metrics.RecordFeedPoll(feed.Source, string(feed.Category), time.Since(start))

	st := p.feedState(feed.Source)
	if err != nil {
		p.recordFailure(ctx, st, feed, now, "fetch_error", err)
		return 0, 0, 0
	}

	for _, item := range items {
		canonical := CanonicalURL(item.URL)
		if fingerprint.IsSpam(item.Title, item.Content, canonical) {
			filteredCount++
			continue
		}

		article := p.buildArticle(feed, item, canonical, now)

		// fetched_at is immutable after first insert (spec.md §3, §4.3):
		// merge onto the previously-stored article, if any, instead of
		// letting a fresh fetch clobber it.
		if existing, err := p.store.GetArticle(ctx, article.ID); err == nil {
			existing.ApplyUpsert(article, now)
			article = existing
		}

		inserted, err := p.store.UpsertArticle(ctx, article)
		if err != nil {
			p.logger.Error("failed to upsert article",
				slog.String("source", feed.Source),
				slog.String("url", canonical),
				slog.Any("error", err))
			continue
		}
		if inserted {
			newCount++
		} else {
			updatedCount++
		}
	}

	p.recordSuccess(ctx, st, feed, now)
	return newCount, updatedCount, filteredCount
}

func (p *Poller) buildArticle(feed config.FeedConfig, item scraper.FeedItem, canonical string, now time.Time) *entity.Article {
	entities := fingerprint.ExtractEntities(item.Title, 5)
	return &entity.Article{
		ID:          ArticleID(feed.Source, canonical),
		Source:      feed.Source,
		SourceTier:  feed.SourceTier,
		URL:         canonical,
		Title:       item.Title,
		Description: item.Content,
		PublishedAt: item.PublishedAt,
		FetchedAt:   now,
		UpdatedAt:   now,
		Category:    feed.Category,
		Language:    defaultLanguage,
		Entities:    entities,
		Fingerprint: fingerprint.Compute(item.Title, entities),
	}
}

func (p *Poller) feedState(source string) *entity.FeedPollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.stateByID[source]
	if !ok {
		st = &entity.FeedPollState{Source: source}
		p.stateByID[source] = st
	}
	return st
}

func (p *Poller) recordSuccess(ctx context.Context, st *entity.FeedPollState, feed config.FeedConfig, now time.Time) {
	st.LastPolledAt = now
	st.LastOutcome = "ok"
	st.ConsecutiveFailures = 0
	st.QuarantinedUntil = time.Time{}
	if err := p.states.UpsertFeedState(ctx, st); err != nil {
		p.logger.Error("failed to persist feed state",
			slog.String("source", feed.Source), slog.Any("error", err))
	}
}

func (p *Poller) recordFailure(ctx context.Context, st *entity.FeedPollState, feed config.FeedConfig, now time.Time, reason string, cause error) {
	st.LastPolledAt = now
	st.LastOutcome = reason
	st.ConsecutiveFailures++
	if st.ConsecutiveFailures >= consecutiveFailuresBeforeQuarantine {
		st.QuarantinedUntil = now.Add(quarantineDuration)
		metrics.RecordFeedQuarantined(feed.Source)
	}
	metrics.RecordFeedFailure(feed.Source, reason)

	if err := p.states.UpsertFeedState(ctx, st); err != nil {
		p.logger.Error("failed to persist feed state",
			slog.String("source", feed.Source), slog.Any("error", err))
	}
	p.logger.Warn("feed poll failed",
		slog.String("source", feed.Source),
		slog.String("url", feed.URL),
		slog.Int("consecutive_failures", st.ConsecutiveFailures),
		slog.Any("error", cause))
}
