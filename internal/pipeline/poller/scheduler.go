package poller

import (
	"sort"
	"time"

	"newsroom-core/internal/config"
	"newsroom-core/internal/domain/entity"
)

const (
	// feedCooldown is the minimum interval between polls of the same feed
	// (spec.md §4.3).
	feedCooldown = 180 * time.Second

	// feedsPerTick is the maximum number of feeds polled in one tick.
	feedsPerTick = 3

	// consecutiveFailuresBeforeQuarantine is the failure streak that
	// quarantines a feed.
	consecutiveFailuresBeforeQuarantine = 3

	// quarantineDuration is how long a feed is skipped after tripping the
	// failure streak.
	quarantineDuration = 5 * time.Minute
)

// scheduler selects, every tick, at most one feed per category, rotating
// which category goes first so no category is starved or bursts
// (spec.md §4.3: "prevents category bursts that made the downstream feed
// feel lumpy").
type scheduler struct {
	byCategory   map[entity.Category][]config.FeedConfig
	categoryRota []entity.Category
	rotaPos      int
}

func newScheduler(feeds []config.FeedConfig) *scheduler {
	byCategory := make(map[entity.Category][]config.FeedConfig)
	for _, f := range feeds {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	categories := make([]entity.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	return &scheduler{byCategory: byCategory, categoryRota: categories}
}

// selectTick returns up to feedsPerTick feeds to poll this tick, at most
// one per category, favouring the most overdue eligible feed within each
// category. states holds the current poll state for every known source;
// a source with no entry has never been polled and is always eligible.
func (s *scheduler) selectTick(now time.Time, states map[string]*entity.FeedPollState) []config.FeedConfig {
	if len(s.categoryRota) == 0 {
		return nil
	}

	var selected []config.FeedConfig
	for i := 0; i < len(s.categoryRota) && len(selected) < feedsPerTick; i++ {
		idx := (s.rotaPos + i) % len(s.categoryRota)
		category := s.categoryRota[idx]

		if feed, ok := mostOverdueEligible(s.byCategory[category], now, states); ok {
			selected = append(selected, feed)
		}
	}

	if len(s.categoryRota) > 0 {
		s.rotaPos = (s.rotaPos + 1) % len(s.categoryRota)
	}

	return selected
}

func mostOverdueEligible(feeds []config.FeedConfig, now time.Time, states map[string]*entity.FeedPollState) (config.FeedConfig, bool) {
	var best config.FeedConfig
	var bestLastPolled time.Time
	found := false

	for _, f := range feeds {
		st, known := states[f.Source]
		if known && !st.Eligible(now, feedCooldown) {
			continue
		}

		lastPolled := time.Time{}
		if known {
			lastPolled = st.LastPolledAt
		}

		if !found || lastPolled.Before(bestLastPolled) {
			best = f
			bestLastPolled = lastPolled
			found = true
		}
	}

	return best, found
}
