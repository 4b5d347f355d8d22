package summarizer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/resilience/circuitbreaker"
	"newsroom-core/internal/resilience/retry"
)

// OpenAIConfig holds configuration parameters for the OpenAI summarizer.
// It backs both the realtime Provider implementation (exercised as a
// fallback/alternate to Claude) and the batch submission path spec.md
// §4.6 reserves for OpenAI's Batches API.
type OpenAIConfig struct {
	Model            string
	SummaryMaxTokens int
	SummaryMinWords  int
	SummaryMaxWords  int
	HeadlineMaxChars int
	Timeout          time.Duration
	BatchModel       string
	CompletionWindow string
}

// GetSummaryWordBounds implements SummarizerConfig.
func (c OpenAIConfig) GetSummaryWordBounds() (int, int) { return c.SummaryMinWords, c.SummaryMaxWords }

// GetHeadlineMaxChars implements SummarizerConfig.
func (c OpenAIConfig) GetHeadlineMaxChars() int { return c.HeadlineMaxChars }

// Validate implements SummarizerConfig.
func (c OpenAIConfig) Validate() error {
	if err := ValidateSummaryWordBounds(c.SummaryMinWords, c.SummaryMaxWords); err != nil {
		return fmt.Errorf("invalid openai config: %w", err)
	}
	if err := ValidateHeadlineMaxChars(c.HeadlineMaxChars); err != nil {
		return fmt.Errorf("invalid openai config: %w", err)
	}
	if c.Model == "" || c.BatchModel == "" {
		return fmt.Errorf("invalid openai config: model and batch model are required")
	}
	return nil
}

// LoadOpenAIConfig loads configuration from environment variables,
// falling back to the spec.md §4.6 prompt-contract defaults.
func LoadOpenAIConfig() (*OpenAIConfig, error) {
	minWords := envIntDefault("SUMMARIZER_SUMMARY_MIN_WORDS", DefaultSummaryMinWords)
	maxWords := envIntDefault("SUMMARIZER_SUMMARY_MAX_WORDS", DefaultSummaryMaxWords)
	if err := ValidateSummaryWordBounds(minWords, maxWords); err != nil {
		slog.Warn("invalid summary word bounds from environment, using defaults", slog.String("error", err.Error()))
		minWords, maxWords = DefaultSummaryMinWords, DefaultSummaryMaxWords
	}
	headlineMax := envIntDefault("SUMMARIZER_HEADLINE_MAX_CHARS", DefaultHeadlineMaxChars)
	if err := ValidateHeadlineMaxChars(headlineMax); err != nil {
		slog.Warn("invalid headline bound from environment, using default", slog.String("error", err.Error()))
		headlineMax = DefaultHeadlineMaxChars
	}

	config := &OpenAIConfig{
		Model:            openai.GPT4o,
		SummaryMaxTokens: 1024,
		SummaryMinWords:  minWords,
		SummaryMaxWords:  maxWords,
		HeadlineMaxChars: headlineMax,
		Timeout:          60 * time.Second,
		BatchModel:       openai.GPT4oMini,
		CompletionWindow: "24h",
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OpenAI configuration: %w", err)
	}
	return config, nil
}

// OpenAI implements Provider using OpenAI's chat completion API, and
// additionally exposes the Batches API surface the batch backfill path
// (spec.md §4.6, §6) needs: submitting up to 500 cluster summaries in one
// request and polling for completion.
type OpenAI struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          *OpenAIConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewOpenAI creates a new OpenAI summarizer with the given API key.
func NewOpenAI(apiKey string, config *OpenAIConfig) *OpenAI {
	slog.Info("Initialized OpenAI summarizer with configuration",
		slog.String("model", config.Model),
		slog.String("batch_model", config.BatchModel))

	return &OpenAI{
		client:          openai.NewClient(apiKey),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:     retry.AIAPIConfig(),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// GenerateSummary issues a synchronous summary+headline completion,
// satisfying Provider so OpenAI can stand in for Claude on the real-time
// path when the circuit breaker on the primary provider is open.
func (o *OpenAI) GenerateSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result *SummaryResult
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doGenerateSummary(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(*SummaryResult)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("openai summary generation failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAI) doGenerateSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	prompt := buildSummaryPrompt(req, o.config.SummaryMinWords, o.config.SummaryMaxWords, o.config.HeadlineMaxChars)

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		MaxTokens: o.config.SummaryMaxTokens,
	})
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned empty response")
	}

	summaryText, headline, err := parseSummaryResponse(resp.Choices[0].Message.Content, o.config.SummaryMinWords, o.config.SummaryMaxWords, o.config.HeadlineMaxChars)
	o.metricsRecorder.RecordDuration(duration)
	o.metricsRecorder.RecordCompliance(err == nil)
	if err != nil {
		o.metricsRecorder.RecordLimitExceeded()
		return nil, err
	}
	o.metricsRecorder.RecordLength(wordCount(summaryText))

	return &SummaryResult{
		Summary:          summaryText,
		Headline:         headline,
		Model:            o.config.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CostUSD:          costUSD(o.config.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, false),
		GenerationTimeMS: duration.Milliseconds(),
	}, nil
}

// ReevaluateHeadline satisfies Provider; unused in practice since headline
// re-evaluation stays on the Claude path, but kept so OpenAI can fully
// substitute for Claude during an outage.
func (o *OpenAI) ReevaluateHeadline(ctx context.Context, req HeadlineRequest) (*HeadlineResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: buildHeadlinePrompt(req),
		}},
		MaxTokens: 128,
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned empty response")
	}
	return parseHeadlineResponse(resp.Choices[0].Message.Content), nil
}

// BatchSummaryRequest is one cluster's worth of input carried in a batch
// submission, identified by ClusterID so the result can be matched back
// to its cluster (spec.md §4.6's batch path).
type BatchSummaryRequest struct {
	ClusterID string
	Request   SummaryRequest
}

// BatchSummaryResult is one line of a completed batch's output, matched
// back to its cluster by ClusterID. Err is set (and Result nil) when that
// line's completion failed the prompt contract.
type BatchSummaryResult struct {
	ClusterID string
	Result    *SummaryResult
	Err       error
}

// batchRequestLine and batchResponseLine mirror the JSONL shape OpenAI's
// Batches API consumes and produces: one /v1/chat/completions request or
// response per line, correlated by custom_id.
type batchRequestLine struct {
	CustomID string                       `json:"custom_id"`
	Method   string                       `json:"method"`
	URL      string                       `json:"url"`
	Body     openai.ChatCompletionRequest `json:"body"`
}

type batchResponseLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		Body openai.ChatCompletionResponse `json:"body"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SubmitBatch assembles and submits a batch of summary-generation
// requests (spec.md §4.6 batch path step 2), uploading a JSONL input file
// and creating the batch in one call.
func (o *OpenAI) SubmitBatch(ctx context.Context, items []BatchSummaryRequest) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		line := batchRequestLine{
			CustomID: item.ClusterID,
			Method:   "POST",
			URL:      "/v1/chat/completions",
			Body: openai.ChatCompletionRequest{
				Model: o.config.BatchModel,
				Messages: []openai.ChatCompletionMessage{{
					Role:    openai.ChatMessageRoleUser,
					Content: buildSummaryPrompt(item.Request, o.config.SummaryMinWords, o.config.SummaryMaxWords, o.config.HeadlineMaxChars),
				}},
				MaxTokens: o.config.SummaryMaxTokens,
			},
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("encode batch line for cluster %s: %w", item.ClusterID, err)
		}
	}

	file, err := o.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    "batch-summaries.jsonl",
		Bytes:   buf.Bytes(),
		Purpose: openai.PurposeBatch,
	})
	if err != nil {
		return "", fmt.Errorf("upload batch input file: %w", err)
	}

	batch, err := o.client.CreateBatch(ctx, openai.CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         openai.BatchEndpointChatCompletions,
		CompletionWindow: o.config.CompletionWindow,
	})
	if err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}
	return batch.ID, nil
}

// PollBatch checks the provider-side status of an outstanding batch.
// status matches entity.BatchStatus's closed set; done is true once the
// batch has reached a terminal status.
func (o *OpenAI) PollBatch(ctx context.Context, batchID string) (status entity.BatchStatus, done bool, err error) {
	batch, err := o.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return "", false, fmt.Errorf("retrieve batch %s: %w", batchID, err)
	}
	switch batch.Status {
	case "completed":
		return entity.BatchCompleted, true, nil
	case "failed", "expired", "cancelled":
		return entity.BatchFailed, true, nil
	case "in_progress", "finalizing":
		return entity.BatchInProgress, false, nil
	default:
		return entity.BatchSubmitted, false, nil
	}
}

// FetchBatchResults downloads and parses a completed batch's output file,
// returning one BatchSummaryResult per input line. A line whose completion
// fails the prompt contract carries a non-nil Err rather than aborting the
// whole batch (spec.md §4.6: "applies each summary to its cluster").
func (o *OpenAI) FetchBatchResults(ctx context.Context, batchID string) ([]BatchSummaryResult, error) {
	batch, err := o.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("retrieve batch %s: %w", batchID, err)
	}
	if batch.OutputFileID == "" {
		return nil, fmt.Errorf("batch %s has no output file", batchID)
	}

	content, err := o.client.GetFileContent(ctx, batch.OutputFileID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch output file: %w", err)
	}

	var results []BatchSummaryResult
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line batchResponseLine
		if unmarshalErr := json.Unmarshal(scanner.Bytes(), &line); unmarshalErr != nil {
			results = append(results, BatchSummaryResult{Err: fmt.Errorf("decode batch result line: %w", unmarshalErr)})
			continue
		}
		if line.Error != nil {
			results = append(results, BatchSummaryResult{ClusterID: line.CustomID, Err: fmt.Errorf("%w: %s", entity.ErrGenerationFailed, line.Error.Message)})
			continue
		}
		if line.Response == nil || len(line.Response.Body.Choices) == 0 {
			results = append(results, BatchSummaryResult{ClusterID: line.CustomID, Err: fmt.Errorf("%w: empty batch response", entity.ErrGenerationFailed)})
			continue
		}
		raw := line.Response.Body.Choices[0].Message.Content
		summaryText, headline, parseErr := parseSummaryResponse(raw, o.config.SummaryMinWords, o.config.SummaryMaxWords, o.config.HeadlineMaxChars)
		if parseErr != nil {
			results = append(results, BatchSummaryResult{ClusterID: line.CustomID, Err: parseErr})
			continue
		}
		usage := line.Response.Body.Usage
		results = append(results, BatchSummaryResult{
			ClusterID: line.CustomID,
			Result: &SummaryResult{
				Summary:          summaryText,
				Headline:         headline,
				Model:            o.config.BatchModel,
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				CostUSD:          costUSD(o.config.BatchModel, usage.PromptTokens, usage.CompletionTokens, true),
			},
		})
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return results, fmt.Errorf("scan batch output: %w", scanErr)
	}
	return results, nil
}
