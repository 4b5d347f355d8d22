package fingerprint

import (
	"strings"
	"unicode"
)

// promotionalKeywords trigger rule (a): any hit anywhere in title,
// description or URL marks the article as spam/lifestyle content.
var promotionalKeywords = []string{
	"sponsored", "advertisement", "promo code", "discount code",
	"% off", "limited time offer", "shop now", "buy now", "affiliate link",
	"giveaway", "sweepstakes", "win a free",
}

// lifestyleURLSegments trigger rule (b) when combined with a short,
// mostly-capitalised title and no news-verb.
var lifestyleURLSegments = []string{
	"/good-food", "/best-restaurant", "/food-drink", "/venue",
	"/eating-out", "/lifestyle", "/food", "/dining", "/restaurants",
}

// newsVerbs, if present anywhere in the title, rescue it from rule (b)'s
// lifestyle-URL heuristic: a short capitalised title that nonetheless
// reports an event is real news, not a listicle.
var newsVerbs = []string{
	"says", "announces", "reports", "confirms", "claims", "accuses",
	"reveals", "attack", "fire", "death", "killed", "injured", "arrested",
	"charged", "verdict", "found",
}

// lifestyleKeywords trigger rule (c) when found in the description of a
// short, mostly-capitalised title.
var lifestyleKeywords = []string{
	"recipe", "restaurant", "cafe", "menu", "chef", "cuisine", "dessert",
	"cocktail", "brunch", "foodie", "dining", "getaway", "staycation",
	"spa day", "wellness retreat",
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// capitalisationRatio returns the fraction of words in title that begin
// with an uppercase letter, and the word count.
func capitalisationRatio(title string) (ratio float64, wordCount int) {
	words := strings.Fields(title)
	wordCount = len(words)
	if wordCount == 0 {
		return 0, 0
	}
	capitalised := 0
	for _, w := range words {
		r := []rune(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			capitalised++
		}
	}
	return float64(capitalised) / float64(wordCount), wordCount
}

// isShortAndCapitalised implements the "title is 1-4 words with >=70% of
// words capitalised" predicate shared by rules (b) and (c).
func isShortAndCapitalised(title string) bool {
	ratio, count := capitalisationRatio(title)
	return count >= 1 && count <= 4 && ratio >= 0.70
}

// IsSpam applies the spam / lifestyle filter of spec.md §4.2. A true
// result means the article must be rejected and never stored.
func IsSpam(title, description, url string) bool {
	// Rule (a): promotional keywords anywhere.
	if containsAny(title+" "+description+" "+url, promotionalKeywords) {
		return true
	}

	// Rule (b): lifestyle URL segment + short capitalised title + no news-verb.
	// Fires even with an empty description.
	if containsAny(url, lifestyleURLSegments) && isShortAndCapitalised(title) {
		if !containsAny(title, newsVerbs) {
			return true
		}
	}

	// Rule (c): short capitalised title + lifestyle keyword in description.
	if isShortAndCapitalised(title) && containsAny(description, lifestyleKeywords) {
		return true
	}

	return false
}
