// Package story provides the unauthenticated and authenticated read-API
// handlers over story clusters (spec.md §4.7, C7): feed, breaking,
// search, get, sources, and the authenticated interact endpoint.
package story

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store"
)

// StoryDTO is the JSON shape of one cluster in a feed/breaking/search
// list response.
type StoryDTO struct {
	ID                string    `json:"id"`
	Category          string    `json:"category"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	VerificationLevel int       `json:"verification_level"`
	ArticleCount      int       `json:"article_count"`
	FirstSeen         time.Time `json:"first_seen"`
	LastUpdated       time.Time `json:"last_updated"`
	Summary           string    `json:"summary,omitempty"`
	Headline          string    `json:"headline,omitempty"`
}

// SourceDTO is one deduplicated member article as shown by get/sources
// (spec.md §4.7's "display-friendly source names").
type SourceDTO struct {
	Source      string    `json:"source"`
	SourceName  string    `json:"source_name"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// StoryDetailDTO is the get(clusterId) response: the full cluster plus its
// deduplicated sources.
type StoryDetailDTO struct {
	StoryDTO
	SourceCount int         `json:"source_count"`
	Sources     []SourceDTO `json:"sources"`
}

// toStoryDTO converts a cluster to its list-view representation. Member
// article count is the raw (pre-deduplication) count: list endpoints
// deliberately skip the get/sources dedup pass to avoid fetching every
// member article of every listed cluster (spec.md §4.7 ties
// deduplication to serialisation of a single cluster's sources, not to
// list endpoints).
func toStoryDTO(c *entity.Cluster) StoryDTO {
	dto := StoryDTO{
		ID:                c.ID,
		Category:          string(c.Category),
		Title:             c.Title,
		Status:            string(c.Status),
		VerificationLevel: c.VerificationLevel,
		ArticleCount:      len(c.SourceArticles),
		FirstSeen:         c.FirstSeen,
		LastUpdated:       c.LastUpdated,
	}
	if c.Summary != nil {
		dto.Summary = c.Summary.Text
		dto.Headline = c.Title
	}
	return dto
}

// fetchMemberArticles resolves every article ID in a cluster's
// source_articles to its stored entity.Article, silently skipping any
// that can no longer be found (e.g. a raw_articles TTL eviction per
// spec.md §6's 30-day TTL on that container) rather than failing the
// whole request.
func fetchMemberArticles(ctx context.Context, articles store.ArticleStore, c *entity.Cluster) []*entity.Article {
	out := make([]*entity.Article, 0, len(c.SourceArticles))
	for _, id := range c.SourceArticles {
		a, err := articles.GetArticle(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// dedupeSources collapses member articles to at most one per source
// token, preferring the most recent by PublishedAt (spec.md §4.7's
// "Sources deduplication" rule and the S3 scenario). Cluster membership
// itself is never modified; this runs only at serialisation time.
func dedupeSources(articles []*entity.Article) []*entity.Article {
	bestBySource := make(map[string]*entity.Article, len(articles))
	for _, a := range articles {
		cur, ok := bestBySource[a.Source]
		if !ok || a.PublishedAt.After(cur.PublishedAt) {
			bestBySource[a.Source] = a
		}
	}
	out := make([]*entity.Article, 0, len(bestBySource))
	for _, a := range bestBySource {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out
}

// toSourceDTOs renders deduplicated member articles as SourceDTOs.
func toSourceDTOs(articles []*entity.Article) []SourceDTO {
	out := make([]SourceDTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, SourceDTO{
			Source:      a.Source,
			SourceName:  displayName(a.Source),
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return out
}

// toStoryDetailDTO builds the full get(clusterId) response: the cluster
// plus its deduplicated, display-named sources.
func toStoryDetailDTO(ctx context.Context, c *entity.Cluster, articles store.ArticleStore) StoryDetailDTO {
	members := fetchMemberArticles(ctx, articles, c)
	deduped := dedupeSources(members)
	return StoryDetailDTO{
		StoryDTO:    toStoryDTO(c),
		SourceCount: len(deduped),
		Sources:     toSourceDTOs(deduped),
	}
}

// queryInt parses a query parameter as an int, returning def if absent or
// unparseable (the read API's policy of "empty results, not errors" for
// malformed pagination extends to simply falling back to sane defaults).
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
