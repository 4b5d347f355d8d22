// Package summarizer provides AI-powered summary and headline generation
// for story clusters (spec.md §4.6). It includes adapters for Claude
// (Anthropic) and OpenAI, both wrapped in circuit breaker and retry logic,
// with comprehensive observability through structured logging and
// Prometheus metrics.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"newsroom-core/internal/resilience/circuitbreaker"
	"newsroom-core/internal/resilience/retry"
)

// ClaudeConfig holds configuration parameters for the Claude summarizer.
// Configuration is loaded from environment variables with fallback to the
// spec.md §4.6 prompt-contract defaults.
type ClaudeConfig struct {
	// Model is the Claude API model identifier used for both summary
	// generation and headline re-evaluation.
	Model string

	// SummaryMaxTokens bounds the response length for a full summary
	// generation call. HeadlineMaxTokens bounds the much shorter headline
	// re-evaluation call.
	SummaryMaxTokens  int
	HeadlineMaxTokens int

	// SummaryMinWords/SummaryMaxWords and HeadlineMaxChars are the prompt
	// contract bounds, overridable via SUMMARIZER_SUMMARY_MIN_WORDS,
	// SUMMARIZER_SUMMARY_MAX_WORDS and SUMMARIZER_HEADLINE_MAX_CHARS.
	SummaryMinWords  int
	SummaryMaxWords  int
	HeadlineMaxChars int

	// Timeout bounds a single summary-generation call (spec.md §5: LLM
	// realtime 30s).
	Timeout time.Duration
}

// GetSummaryWordBounds implements SummarizerConfig.
func (c ClaudeConfig) GetSummaryWordBounds() (int, int) { return c.SummaryMinWords, c.SummaryMaxWords }

// GetHeadlineMaxChars implements SummarizerConfig.
func (c ClaudeConfig) GetHeadlineMaxChars() int { return c.HeadlineMaxChars }

// Validate implements SummarizerConfig.
func (c ClaudeConfig) Validate() error {
	if err := ValidateSummaryWordBounds(c.SummaryMinWords, c.SummaryMaxWords); err != nil {
		return fmt.Errorf("invalid claude config: %w", err)
	}
	if err := ValidateHeadlineMaxChars(c.HeadlineMaxChars); err != nil {
		return fmt.Errorf("invalid claude config: %w", err)
	}
	if c.Model == "" {
		return fmt.Errorf("invalid claude config: model cannot be empty")
	}
	return nil
}

// LoadClaudeConfig loads configuration from environment variables,
// falling back to the spec.md §4.6 prompt-contract defaults (80-180 word
// summaries, 120-char headlines) on invalid or absent overrides.
//
// Environment variables:
//   - SUMMARIZER_SUMMARY_MIN_WORDS, SUMMARIZER_SUMMARY_MAX_WORDS
//   - SUMMARIZER_HEADLINE_MAX_CHARS
func LoadClaudeConfig() ClaudeConfig {
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

	return ClaudeConfig{
		Model:             string(anthropic.ModelClaudeSonnet4_5_20250929),
		SummaryMaxTokens:  1024,
		HeadlineMaxTokens: 128,
		SummaryMinWords:   minWords,
		SummaryMaxWords:   maxWords,
		HeadlineMaxChars:  headlineMax,
		Timeout:           30 * time.Second,
	}
}

// envIntDefault reads an integer environment variable, returning def if
// unset or unparsable.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

// Claude implements Provider using Anthropic's Claude API. It wraps every
// call in circuit breaker and retry logic, and reports metrics and
// structured logs the same way the teacher's original single-text
// summarizer did (doSummarize's request-ID tagging, duration logging).
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          ClaudeConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewClaude creates a new Claude summarizer with the given API key.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()

	slog.Info("Initialized Claude summarizer with configuration",
		slog.String("model", config.Model),
		slog.Int("summary_min_words", config.SummaryMinWords),
		slog.Int("summary_max_words", config.SummaryMaxWords),
		slog.Int("headline_max_chars", config.HeadlineMaxChars))

	return &Claude{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:     retry.AIAPIConfig(),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// GenerateSummary issues a real-time summary+headline completion for a
// cluster (spec.md §4.6's event-driven path), wrapped in retry and circuit
// breaker logic identical in shape to the teacher's Summarize method.
func (c *Claude) GenerateSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result *SummaryResult
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGenerateSummary(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(*SummaryResult)
		return nil
	})
	if retryErr != nil {
		c.metricsRecorder.RecordCompliance(false)
		return nil, fmt.Errorf("claude summary generation failed after retries: %w", retryErr)
	}
	return result, nil
}

// doGenerateSummary performs the actual API call without retry or circuit
// breaker, mirroring the teacher's doSummarize structure: request-ID
// tagging, duration measurement, structured start/end logging.
func (c *Claude) doGenerateSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	requestID := uuid.New().String()
	prompt := buildSummaryPrompt(req, c.config.SummaryMinWords, c.config.SummaryMaxWords, c.config.HeadlineMaxChars)

	slog.InfoContext(ctx, "starting summary generation",
		slog.String("request_id", requestID),
		slog.String("cluster_id", req.ClusterID),
		slog.Int("source_count", len(req.Articles)))

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.SummaryMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "summary generation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return nil, fmt.Errorf("claude api returned unexpected response type")
	}

	summaryText, headline, err := parseSummaryResponse(textBlock.Text, c.config.SummaryMinWords, c.config.SummaryMaxWords, c.config.HeadlineMaxChars)
	compliant := err == nil
	c.metricsRecorder.RecordDuration(duration)
	c.metricsRecorder.RecordCompliance(compliant)
	if !compliant {
		c.metricsRecorder.RecordLimitExceeded()
		slog.WarnContext(ctx, "summary generation failed prompt contract",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, err
	}
	c.metricsRecorder.RecordLength(wordCount(summaryText))

	promptTokens := int(message.Usage.InputTokens)
	completionTokens := int(message.Usage.OutputTokens)
	cached := int(message.Usage.CacheReadInputTokens)

	slog.InfoContext(ctx, "summary generation completed",
		slog.String("request_id", requestID),
		slog.String("cluster_id", req.ClusterID),
		slog.Int("word_count", wordCount(summaryText)),
		slog.Duration("duration", duration))

	return &SummaryResult{
		Summary:          summaryText,
		Headline:         headline,
		Model:            c.config.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CachedTokens:     cached,
		CostUSD:          costUSD(c.config.Model, promptTokens, completionTokens, false),
		GenerationTimeMS: duration.Milliseconds(),
	}, nil
}

// ReevaluateHeadline issues the short headline re-evaluation prompt on
// every source addition (spec.md §4.6). Unlike GenerateSummary this does
// not produce a SummaryVersion and is not subject to the word-count bound.
func (c *Claude) ReevaluateHeadline(ctx context.Context, req HeadlineRequest) (*HeadlineResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result *HeadlineResult
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doReevaluateHeadline(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(*HeadlineResult)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("claude headline re-evaluation failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *Claude) doReevaluateHeadline(ctx context.Context, req HeadlineRequest) (*HeadlineResult, error) {
	requestID := uuid.New().String()
	prompt := buildHeadlinePrompt(req)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.HeadlineMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "headline re-evaluation failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return nil, fmt.Errorf("claude api returned unexpected response type")
	}
	return parseHeadlineResponse(textBlock.Text), nil
}
