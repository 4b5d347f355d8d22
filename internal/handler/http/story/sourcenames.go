package story

import "strings"

// displayNames maps a source token (as stored on entity.Article.Source) to
// the human-readable outlet name the read API shows alongside it
// (spec.md §4.7: "display-friendly source names from a static mapping
// table (ap -> Associated Press, ...)"). Neither the feed configuration
// (internal/config/feeds.go) nor the article entity carries this, since
// it is purely a read-API presentation concern.
var displayNames = map[string]string{
	"ap":        "Associated Press",
	"reuters":   "Reuters",
	"bbc":       "BBC News",
	"afp":       "Agence France-Presse",
	"nyt":       "The New York Times",
	"guardian":  "The Guardian",
	"aljazeera": "Al Jazeera",
	"cnn":       "CNN",
	"npr":       "NPR",
	"bloomberg": "Bloomberg",
}

// displayName resolves source to its editorial name, falling back to a
// titlecased rendering of the token itself when no mapping exists.
func displayName(source string) string {
	if name, ok := displayNames[source]; ok {
		return name
	}
	if source == "" {
		return source
	}
	return strings.ToUpper(source[:1]) + source[1:]
}
