package clustering

import (
	"sort"
	"strings"
	"unicode"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/fingerprint"
)

const (
	fuzzyMatchThreshold     = 0.30
	entityFallbackThreshold = 0.20
	entityFallbackMinShared = 2
)

// matchStrategy names which step of spec.md §4.4's cascade produced a
// match, surfaced in metrics and logs.
type matchStrategy string

const (
	strategyFingerprint matchStrategy = "fingerprint"
	strategyFuzzy       matchStrategy = "fuzzy"
	strategyEntity      matchStrategy = "entity"
	strategyNewCluster  matchStrategy = "new_cluster"
)

// selectCandidate runs the spec.md §4.4 matching cascade over candidates
// (already narrowed to the article's category and a 48h window) and
// returns the chosen cluster, or nil if a.title forms a new story.
func selectCandidate(a *entity.Article, candidates []*entity.Cluster) (*entity.Cluster, matchStrategy) {
	if fp := fingerprintMatch(a, candidates); fp != nil {
		return fp, strategyFingerprint
	}

	best, bestScore := bestFuzzyMatch(a, candidates)
	if best == nil {
		return nil, strategyNewCluster
	}

	if bestScore > fuzzyMatchThreshold && !fingerprint.TopicConflict(a.Title, best.Title) {
		return best, strategyFuzzy
	}

	if bestScore > entityFallbackThreshold && sharedUppercaseEntities(a.Title, best.Title) >= entityFallbackMinShared {
		return best, strategyEntity
	}

	return nil, strategyNewCluster
}

// fingerprintMatch selects candidates whose fingerprint exactly equals
// a.Fingerprint and returns the most recently updated one, or nil.
func fingerprintMatch(a *entity.Article, candidates []*entity.Cluster) *entity.Cluster {
	var matches []*entity.Cluster
	for _, c := range candidates {
		if c.Fingerprint == a.Fingerprint {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastUpdated.After(matches[j].LastUpdated)
	})
	return matches[0]
}

// bestFuzzyMatch scores every candidate by title similarity and returns
// the highest-scoring one, whatever the score (callers apply the
// acceptance thresholds).
func bestFuzzyMatch(a *entity.Article, candidates []*entity.Cluster) (*entity.Cluster, float64) {
	entitiesA := fingerprint.EntityTexts(a.Entities)

	var best *entity.Cluster
	var bestScore float64
	for _, c := range candidates {
		score := fingerprint.TitleSimilarity(a.Title, c.Title, entitiesA, fingerprint.EntityTexts(c.Entities))
		if best == nil || score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

// sharedUppercaseEntities implements spec.md §4.4 step 4 literally: the
// set of uppercase title words longer than 4 characters, compared between
// two titles. This is deliberately a separate, narrower rule from
// fingerprint.ExtractEntities (which applies a length>=4 cutoff, drops
// stop-words, and keeps only the top-k by count) — the entity fallback is
// a last-resort check over the full uppercase-word set of both titles.
func sharedUppercaseEntities(titleA, titleB string) int {
	a := uppercaseWordsOverFour(titleA)
	b := uppercaseWordsOverFour(titleB)

	shared := 0
	for word := range a {
		if b[word] {
			shared++
		}
	}
	return shared
}

func uppercaseWordsOverFour(title string) map[string]bool {
	words := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) <= 4 {
			continue
		}
		r := []rune(w)
		if unicode.IsUpper(r[0]) {
			out[w] = true
		}
	}
	return out
}
