package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostUSD_KnownModel(t *testing.T) {
	got := costUSD("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000, false)
	assert.InDelta(t, 18.00, got, 0.001)
}

func TestCostUSD_UnknownModelFallsBackToDefaultRate(t *testing.T) {
	got := costUSD("some-future-model", 1_000_000, 1_000_000, false)
	want := defaultRate.PromptPerMillion + defaultRate.CompletionPerMillion
	assert.InDelta(t, want, got, 0.001)
}

func TestCostUSD_BatchProcessedAppliesDiscount(t *testing.T) {
	synchronous := costUSD("gpt-4o", 500_000, 200_000, false)
	batch := costUSD("gpt-4o", 500_000, 200_000, true)
	assert.InDelta(t, synchronous*batchDiscount, batch, 0.0001)
}

func TestCostUSD_ZeroTokensIsZeroCost(t *testing.T) {
	assert.Equal(t, 0.0, costUSD("gpt-4o", 0, 0, false))
}
