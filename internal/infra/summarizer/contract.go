package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/utils/text"
)

// Default prompt-contract bounds (spec.md §4.6): a summary is accepted
// between 80 and 180 words; a headline is accepted up to 120 characters.
// These are the package defaults; LoadClaudeConfig/LoadOpenAIConfig allow
// overriding them from the environment for experimentation.
const (
	DefaultSummaryMinWords   = 80
	DefaultSummaryMaxWords   = 180
	DefaultHeadlineMaxChars  = 120
	maxRepresentativeSources = 8
)

// SourceArticleInput is one article fed into the summary prompt: just
// enough of an entity.Article for the model to ground its output in.
type SourceArticleInput struct {
	Source      string
	Title       string
	Description string
	PublishedAt time.Time
}

// SummaryRequest is the input to a full summary/headline generation call
// (spec.md §4.6's "Prompt contract"): the cluster's current headline plus
// a representative sample of its member articles.
type SummaryRequest struct {
	ClusterID       string
	CurrentHeadline string
	Articles        []SourceArticleInput
}

// SummaryResult is a successfully parsed, bounds-checked model response,
// plus everything needed to populate an entity.SummaryVersion.
type SummaryResult struct {
	Summary          string
	Headline         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	CostUSD          float64
	GenerationTimeMS int64
}

// HeadlineRequest is the input to the lightweight headline re-evaluation
// call issued on every source addition (spec.md §4.6 "Headline
// re-evaluation").
type HeadlineRequest struct {
	CurrentHeadline string
	NewArticleTitle string
}

// HeadlineResult carries the model's verdict: either keep the current
// headline, or replace it with Headline.
type HeadlineResult struct {
	Headline string
	Changed  bool
}

// Provider is the LLM-agnostic surface both adapters implement. Both the
// event-driven real-time path and the headline re-evaluation hook depend
// on this interface rather than a concrete provider, the same way
// internal/pipeline/clustering and internal/pipeline/lifecycle depend on
// store.Store rather than a concrete store implementation.
type Provider interface {
	GenerateSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error)
	ReevaluateHeadline(ctx context.Context, req HeadlineRequest) (*HeadlineResult, error)
}

// keepCurrentToken is the literal the headline re-evaluation prompt asks
// the model to echo back verbatim when the new article does not warrant a
// headline change.
const keepCurrentToken = "KEEP_CURRENT"

// buildSummaryPrompt renders the model-agnostic prompt contract
// (spec.md §4.6): a list of {source, title, description, published_at}
// plus the cluster's current headline, asking for a JSON
// {"summary": "...", "headline": "..."} object.
func buildSummaryPrompt(req SummaryRequest, minWords, maxWords, maxHeadlineChars int) string {
	var b strings.Builder
	b.WriteString("You are a news editor synthesising multiple wire reports about the same story into one neutral summary.\n\n")
	fmt.Fprintf(&b, "Current headline: %q\n\n", req.CurrentHeadline)
	b.WriteString("Source articles:\n")
	for i, a := range req.Articles {
		fmt.Fprintf(&b, "%d. [%s, %s] %s — %s\n", i+1, a.Source, a.PublishedAt.UTC().Format(time.RFC3339), a.Title, a.Description)
	}
	fmt.Fprintf(&b, "\nWrite a neutral summary of %d-%d words covering what is confirmed across sources, and propose a headline of at most %d characters.\n", minWords, maxWords, maxHeadlineChars)
	b.WriteString("Respond with ONLY a JSON object of the exact shape {\"summary\": \"...\", \"headline\": \"...\"}, no surrounding prose.\n")
	return b.String()
}

// summaryResponse is the wire shape of a summary-generation completion.
type summaryResponse struct {
	Summary  string `json:"summary"`
	Headline string `json:"headline"`
}

// parseSummaryResponse decodes and bounds-checks a model completion
// against the prompt contract. Any response that fails to parse or falls
// outside [minWords,maxWords] words or maxHeadlineChars characters is a
// generation failure (spec.md §4.6: "treated as a generation failure and
// surfaced without being stored").
func parseSummaryResponse(raw string, minWords, maxWords, maxHeadlineChars int) (summary, headline string, err error) {
	raw = extractJSONObject(raw)
	var parsed summaryResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", "", fmt.Errorf("%w: response is not valid JSON: %v", entity.ErrGenerationFailed, err)
	}
	words := wordCount(parsed.Summary)
	if words < minWords || words > maxWords {
		return "", "", fmt.Errorf("%w: summary has %d words, want %d-%d", entity.ErrGenerationFailed, words, minWords, maxWords)
	}
	if parsed.Headline == "" {
		return "", "", fmt.Errorf("%w: headline is empty", entity.ErrGenerationFailed)
	}
	if headlineChars := text.CountRunes(parsed.Headline); headlineChars > maxHeadlineChars {
		return "", "", fmt.Errorf("%w: headline has %d characters, want <=%d", entity.ErrGenerationFailed, headlineChars, maxHeadlineChars)
	}
	return parsed.Summary, parsed.Headline, nil
}

// buildHeadlinePrompt renders the short headline re-evaluation prompt
// issued on every source addition (spec.md §4.6).
func buildHeadlinePrompt(req HeadlineRequest) string {
	return fmt.Sprintf(
		"Current headline: %q\nNewly added source article title: %q\n\n"+
			"If the current headline still accurately represents the story, respond with exactly: %s\n"+
			"Otherwise respond with exactly one line containing only the new headline text (no quotes, no explanation).",
		req.CurrentHeadline, req.NewArticleTitle, keepCurrentToken)
}

// parseHeadlineResponse interprets the model's verbatim reply.
func parseHeadlineResponse(raw string) *HeadlineResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == keepCurrentToken {
		return &HeadlineResult{Changed: false}
	}
	return &HeadlineResult{Headline: trimmed, Changed: true}
}

// wordCount counts whitespace-delimited words, matching how an editor
// would describe summary length.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// extractJSONObject trims any leading/trailing prose or code-fence markers
// a model sometimes wraps its JSON in, returning the substring between the
// first '{' and the last '}'. If no braces are found the input is returned
// unchanged so json.Unmarshal can produce a descriptive error.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// RepresentativeArticles samples up to maxRepresentativeSources articles
// from a cluster: the earliest, the latest, and a diverse-by-source
// selection in between (spec.md §4.6). articles must be sorted by
// PublishedAt ascending by the caller.
func RepresentativeArticles(articles []SourceArticleInput) []SourceArticleInput {
	if len(articles) <= maxRepresentativeSources {
		return articles
	}
	picked := make([]SourceArticleInput, 0, maxRepresentativeSources)
	picked = append(picked, articles[0])
	seenSources := map[string]bool{articles[0].Source: true}
	for _, a := range articles[1 : len(articles)-1] {
		if len(picked) >= maxRepresentativeSources-1 {
			break
		}
		if seenSources[a.Source] {
			continue
		}
		seenSources[a.Source] = true
		picked = append(picked, a)
	}
	picked = append(picked, articles[len(articles)-1])
	return picked
}
