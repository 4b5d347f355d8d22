package fingerprint

import "strings"

const entityBoostThreshold = 3

// keywordSet returns the lower-cased, stop-word-free, length>3 tokens of a
// title as a set, matching the vocabulary significantWords draws on.
func keywordSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range significantWords(title) {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

// tokenSet returns every lower-cased token of a title as a set, including
// short words and stop-words, for the Jaccard-of-all-tokens signal.
func tokenSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(title) {
		set[strings.ToLower(tok)] = true
	}
	return set
}

func overlapCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	shared := 0
	for k := range small {
		if big[k] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	union := make(map[string]bool, len(a)+len(b))
	shared := 0
	for k := range a {
		union[k] = true
		if b[k] {
			shared++
		}
	}
	for k := range b {
		union[k] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(shared) / float64(len(union))
}

// entityOverlap scores how many of two title's extracted entity texts
// coincide, and returns the shared count alongside the ratio so callers can
// apply the ≥3-shared-entities boost.
func entityOverlap(a, b []string) (ratio float64, shared int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	bSet := make(map[string]bool, len(b))
	for _, e := range b {
		bSet[strings.ToLower(e)] = true
	}
	for _, e := range a {
		if bSet[strings.ToLower(e)] {
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(shared) / float64(denom), shared
}

// longestSubstringFraction returns len(longest common substring of a,b) /
// max(len(a), len(b)), case-insensitive, as a fraction in [0,1].
func longestSubstringFraction(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	longest := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return float64(longest) / float64(maxLen)
}

// TitleSimilarity combines four weighted signals per spec.md §4.2: keyword
// overlap (50%), shared proper-noun entities (30%), longest-substring
// fraction (15%) and Jaccard of all tokens (5%), with a ×1.2 multiplier
// (capped at 1.0) when three or more entities match.
func TitleSimilarity(titleA, titleB string, entitiesA, entitiesB []string) float64 {
	kw := overlapCoefficient(keywordSet(titleA), keywordSet(titleB))
	ent, shared := entityOverlap(entitiesA, entitiesB)
	lcs := longestSubstringFraction(titleA, titleB)
	jac := jaccard(tokenSet(titleA), tokenSet(titleB))

	score := 0.50*kw + 0.30*ent + 0.15*lcs + 0.05*jac
	if shared >= entityBoostThreshold {
		score *= 1.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
