package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"newsroom-core/internal/domain/entity"
)

// significantWords returns a title's tokens longer than three characters,
// lower-cased, in original order, deduplicated by first occurrence.
func significantWords(title string) []string {
	tokens := tokenize(title)
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 3 {
			continue
		}
		lower := strings.ToLower(tok)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

// Compute derives the 6-character hex fingerprint spec.md §4.2 describes:
// the lowercase concatenation of the top three significant words of the
// title (length > 3), sorted lexicographically, plus the top one entity.
// The hash is intentionally lossy so stories sharing a core concept
// collide onto the same fingerprint.
func Compute(title string, entities []entity.EntityMention) string {
	words := significantWords(title)
	if len(words) > 3 {
		words = words[:3]
	}
	sort.Strings(words)

	topEntity := ""
	if len(entities) > 0 {
		topEntity = strings.ToLower(entities[0].Text)
	}

	seed := strings.Join(words, "") + topEntity
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:6]
}
