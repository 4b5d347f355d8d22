package summarizer

import (
	"context"
	"strings"
)

// NoOp is a Provider that synthesises a summary/headline from the input
// articles directly, without calling an LLM. Useful for local development
// and for tests of the orchestration layer that should not depend on a
// real provider.
type NoOp struct{}

// NewNoOp creates a new NoOp provider.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// GenerateSummary concatenates the first two articles' descriptions into a
// deterministic placeholder summary and reuses the latest article's title
// as the headline.
func (n *NoOp) GenerateSummary(_ context.Context, req SummaryRequest) (*SummaryResult, error) {
	var b strings.Builder
	for i, a := range req.Articles {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(a.Description)
	}
	headline := req.CurrentHeadline
	if len(req.Articles) > 0 {
		headline = req.Articles[len(req.Articles)-1].Title
	}
	return &SummaryResult{Summary: b.String(), Headline: headline, Model: "noop"}, nil
}

// ReevaluateHeadline always keeps the current headline.
func (n *NoOp) ReevaluateHeadline(_ context.Context, _ HeadlineRequest) (*HeadlineResult, error) {
	return &HeadlineResult{Changed: false}, nil
}
