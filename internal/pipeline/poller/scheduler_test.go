package poller

import (
	"testing"
	"time"

	"newsroom-core/internal/config"
	"newsroom-core/internal/domain/entity"
)

func sampleFeeds() []config.FeedConfig {
	return []config.FeedConfig{
		{Source: "world-a", Category: entity.CategoryWorld, URL: "https://a.test/rss"},
		{Source: "world-b", Category: entity.CategoryWorld, URL: "https://b.test/rss"},
		{Source: "tech-a", Category: entity.CategoryTech, URL: "https://c.test/rss"},
		{Source: "sports-a", Category: entity.CategorySports, URL: "https://d.test/rss"},
	}
}

func TestScheduler_SelectTick_AtMostOnePerCategory(t *testing.T) {
	sched := newScheduler(sampleFeeds())
	now := time.Now()

	selected := sched.selectTick(now, map[string]*entity.FeedPollState{})

	seen := map[entity.Category]int{}
	for _, f := range selected {
		seen[f.Category]++
	}
	for cat, count := range seen {
		if count > 1 {
			t.Errorf("category %s selected %d times in one tick, want at most 1", cat, count)
		}
	}
	if len(selected) > feedsPerTick {
		t.Errorf("selected %d feeds, want at most %d", len(selected), feedsPerTick)
	}
}

func TestScheduler_SelectTick_SkipsCooldown(t *testing.T) {
	sched := newScheduler([]config.FeedConfig{
		{Source: "world-a", Category: entity.CategoryWorld, URL: "https://a.test/rss"},
	})
	now := time.Now()
	states := map[string]*entity.FeedPollState{
		"world-a": {Source: "world-a", LastPolledAt: now.Add(-10 * time.Second)},
	}

	selected := sched.selectTick(now, states)
	if len(selected) != 0 {
		t.Fatalf("expected no feeds eligible within cooldown, got %d", len(selected))
	}
}

func TestScheduler_SelectTick_SkipsQuarantine(t *testing.T) {
	sched := newScheduler([]config.FeedConfig{
		{Source: "world-a", Category: entity.CategoryWorld, URL: "https://a.test/rss"},
	})
	now := time.Now()
	states := map[string]*entity.FeedPollState{
		"world-a": {
			Source:           "world-a",
			LastPolledAt:     now.Add(-1 * time.Hour),
			QuarantinedUntil: now.Add(1 * time.Minute),
		},
	}

	selected := sched.selectTick(now, states)
	if len(selected) != 0 {
		t.Fatalf("expected quarantined feed to be skipped, got %d", len(selected))
	}
}

func TestScheduler_SelectTick_PrefersMostOverdueWithinCategory(t *testing.T) {
	sched := newScheduler([]config.FeedConfig{
		{Source: "world-a", Category: entity.CategoryWorld, URL: "https://a.test/rss"},
		{Source: "world-b", Category: entity.CategoryWorld, URL: "https://b.test/rss"},
	})
	now := time.Now()
	states := map[string]*entity.FeedPollState{
		"world-a": {Source: "world-a", LastPolledAt: now.Add(-10 * time.Minute)},
		"world-b": {Source: "world-b", LastPolledAt: now.Add(-20 * time.Minute)},
	}

	selected := sched.selectTick(now, states)
	if len(selected) != 1 || selected[0].Source != "world-b" {
		t.Fatalf("expected world-b (more overdue), got %+v", selected)
	}
}

func TestScheduler_SelectTick_RotatesAcrossTicks(t *testing.T) {
	sched := newScheduler(sampleFeeds())
	now := time.Now()

	first := sched.selectTick(now, map[string]*entity.FeedPollState{})
	second := sched.selectTick(now, map[string]*entity.FeedPollState{})

	if len(first) == 0 || len(second) == 0 {
		t.Fatal("expected both ticks to select feeds")
	}
	if first[0].Category == second[0].Category && len(sched.categoryRota) > 1 {
		t.Errorf("expected rotation to change the first category picked: got %s both times", first[0].Category)
	}
}

func TestScheduler_SelectTick_NoFeeds(t *testing.T) {
	sched := newScheduler(nil)
	selected := sched.selectTick(time.Now(), map[string]*entity.FeedPollState{})
	if selected != nil {
		t.Fatalf("expected nil selection for empty feed list, got %+v", selected)
	}
}
