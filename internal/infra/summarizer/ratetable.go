package summarizer

// modelRate is the per-million-token price, in USD, for one model
// identifier, split by token kind. Batch-path requests bill at roughly
// half the synchronous rate (spec.md §4.6, §6); batch callers pass
// BatchProcessed=true to costUSD so the discount is applied.
type modelRate struct {
	PromptPerMillion     float64
	CompletionPerMillion float64
}

// modelRates is the rate table spec.md §4.6 calls for: "cost is computed
// per response from token counts and a model-specific rate table". Prices
// are illustrative list prices for each provider's published models as of
// this writing; an unknown model falls back to defaultRate with a logged
// warning rather than failing the summary.
var modelRates = map[string]modelRate{
	"claude-sonnet-4-5-20250929": {PromptPerMillion: 3.00, CompletionPerMillion: 15.00},
	"claude-haiku-4-5-20251001":  {PromptPerMillion: 0.80, CompletionPerMillion: 4.00},
	"gpt-4o":                     {PromptPerMillion: 2.50, CompletionPerMillion: 10.00},
	"gpt-4o-mini":                {PromptPerMillion: 0.15, CompletionPerMillion: 0.60},
}

var defaultRate = modelRate{PromptPerMillion: 3.00, CompletionPerMillion: 15.00}

const batchDiscount = 0.5

// costUSD computes the dollar cost of one generation from its token
// counts and the model's rate-table entry.
func costUSD(model string, promptTokens, completionTokens int, batchProcessed bool) float64 {
	rate, ok := modelRates[model]
	if !ok {
		rate = defaultRate
	}
	cost := float64(promptTokens)*rate.PromptPerMillion/1_000_000 +
		float64(completionTokens)*rate.CompletionPerMillion/1_000_000
	if batchProcessed {
		cost *= batchDiscount
	}
	return cost
}
