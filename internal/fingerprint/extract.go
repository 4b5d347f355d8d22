// Package fingerprint implements the entity-extraction, content-addressed
// fingerprinting, spam filtering, title-similarity scoring and
// topic-conflict detection that ground the clustering engine (spec.md
// §4.2). Every function here is pure and allocation-light: similarity
// scoring runs over at most a few hundred candidates per article and must
// never become the CPU-bound bottleneck spec.md §5 forbids.
package fingerprint

import (
	"sort"
	"strings"
	"unicode"

	"newsroom-core/internal/domain/entity"
)

// stopWords are excluded from entity extraction regardless of case or
// length; they are common enough to never be meaningful proper nouns even
// when capitalised at the start of a sentence.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true, "after": true,
	"before": true, "over": true, "into": true, "about": true, "amid": true,
	"says": true, "said": true, "new": true,
}

// tokenize splits a title on runs of non-letter/non-digit characters,
// discarding empty fields. It never lower-cases: callers that need
// case-insensitive comparison do so explicitly, since entity extraction
// depends on preserved capitalisation.
func tokenize(title string) []string {
	return strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// ExtractEntities tokenises title and returns the top-k tokens that begin
// with an uppercase letter and are at least four characters long, with
// occurrence counts. Stop-words and all-digit tokens are excluded. Ties in
// count are broken by first appearance, so the result is deterministic for
// a given input (spec.md §4.2).
func ExtractEntities(title string, k int) []entity.EntityMention {
	tokens := tokenize(title)

	order := make([]string, 0, len(tokens))
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 4 {
			continue
		}
		r := []rune(tok)
		if !unicode.IsUpper(r[0]) {
			continue
		}
		if isAllDigits(tok) {
			continue
		}
		if stopWords[strings.ToLower(tok)] {
			continue
		}
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]entity.EntityMention, 0, k)
	for _, tok := range order[:k] {
		out = append(out, entity.EntityMention{Text: tok, Count: counts[tok]})
	}
	return out
}

// EntityTexts projects a slice of extracted entity mentions down to their
// text, the shape TitleSimilarity and topic-conflict detection operate on.
func EntityTexts(mentions []entity.EntityMention) []string {
	out := make([]string, len(mentions))
	for i, m := range mentions {
		out[i] = m.Text
	}
	return out
}
