package summarizer

import (
	"context"

	"newsroom-core/internal/domain/entity"
	infrasummarizer "newsroom-core/internal/infra/summarizer"
)

// fakeProvider is a deterministic infrasummarizer.Provider double: it
// never calls a real model, and records every request it was given so
// tests can assert on what the engine fed it.
type fakeProvider struct {
	summaryCalls  []infrasummarizer.SummaryRequest
	headlineCalls []infrasummarizer.HeadlineRequest

	summaryResult  *infrasummarizer.SummaryResult
	summaryErr     error
	headlineResult *infrasummarizer.HeadlineResult
	headlineErr    error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		summaryResult: &infrasummarizer.SummaryResult{
			Summary:  "A generated summary of the story that is exactly long enough to pass the word bounds check for this fixture.",
			Headline: "A Fresh Headline From The Model",
			Model:    "fake-model",
		},
		headlineResult: &infrasummarizer.HeadlineResult{Changed: false},
	}
}

func (f *fakeProvider) GenerateSummary(_ context.Context, req infrasummarizer.SummaryRequest) (*infrasummarizer.SummaryResult, error) {
	f.summaryCalls = append(f.summaryCalls, req)
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summaryResult, nil
}

func (f *fakeProvider) ReevaluateHeadline(_ context.Context, req infrasummarizer.HeadlineRequest) (*infrasummarizer.HeadlineResult, error) {
	f.headlineCalls = append(f.headlineCalls, req)
	if f.headlineErr != nil {
		return nil, f.headlineErr
	}
	return f.headlineResult, nil
}

// fakeBatchProvider is a deterministic BatchProvider double driving the
// batch scheduler's tests without go-openai.
type fakeBatchProvider struct {
	submittedBatchID string
	submittedItems   []infrasummarizer.BatchSummaryRequest
	submitErr        error

	pollStatus entity.BatchStatus
	pollDone   bool
	pollErr    error

	results    []infrasummarizer.BatchSummaryResult
	resultsErr error
}

func (f *fakeBatchProvider) SubmitBatch(_ context.Context, items []infrasummarizer.BatchSummaryRequest) (string, error) {
	f.submittedItems = items
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submittedBatchID == "" {
		f.submittedBatchID = "batch_test_1"
	}
	return f.submittedBatchID, nil
}

func (f *fakeBatchProvider) PollBatch(_ context.Context, _ string) (entity.BatchStatus, bool, error) {
	return f.pollStatus, f.pollDone, f.pollErr
}

func (f *fakeBatchProvider) FetchBatchResults(_ context.Context, _ string) ([]infrasummarizer.BatchSummaryResult, error) {
	return f.results, f.resultsErr
}
