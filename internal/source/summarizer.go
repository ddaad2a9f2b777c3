package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/anthropic"
	"github.com/sells-group/bizlens/pkg/perplexity"
)

// DefaultSummaryTimeout bounds a summarizer call.
const DefaultSummaryTimeout = 30 * time.Second

const systemPrompt = "Sei un consulente esperto di analisi di mercato locale. " +
	"Rispondi esclusivamente con un oggetto JSON valido."

// PerplexitySummarizer sends the prompt as a chat completion.
type PerplexitySummarizer struct {
	client  perplexity.Client
	guard   *resilience.Guard
	timeout time.Duration
}

// NewPerplexitySummarizer wraps client. A zero timeout uses
// DefaultSummaryTimeout. A nil client makes every call return
// ErrUnavailable.
func NewPerplexitySummarizer(client perplexity.Client, guard *resilience.Guard, timeout time.Duration) *PerplexitySummarizer {
	return &PerplexitySummarizer{client: client, guard: guard, timeout: orDefault(timeout)}
}

// Summarize returns the first choice's content.
func (s *PerplexitySummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", unavailable(NameSummarizer)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := guarded(ctx, s.guard, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages:            perplexity.Conversation(systemPrompt, prompt),
			SearchRecencyFilter: "year",
			WebSearchOptions: &perplexity.WebSearchOptions{
				SearchContextSize: "medium",
				UserLocation:      &perplexity.UserLocation{Country: "US"},
			},
		})
	})
	if err != nil {
		return "", summarizeError(ctx, err)
	}
	return textOrEmpty(resp.Content())
}

// AnthropicSummarizer sends the prompt as a single-turn message.
type AnthropicSummarizer struct {
	client  anthropic.Client
	guard   *resilience.Guard
	timeout time.Duration
}

// NewAnthropicSummarizer wraps client. A zero timeout uses
// DefaultSummaryTimeout. A nil client makes every call return
// ErrUnavailable.
func NewAnthropicSummarizer(client anthropic.Client, guard *resilience.Guard, timeout time.Duration) *AnthropicSummarizer {
	return &AnthropicSummarizer{client: client, guard: guard, timeout: orDefault(timeout)}
}

// Summarize returns the joined text blocks of the reply.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", unavailable(NameSummarizer)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := guarded(ctx, s.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{System: systemPrompt, Prompt: prompt})
	})
	if err != nil {
		return "", summarizeError(ctx, err)
	}
	return textOrEmpty(resp.Text())
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultSummaryTimeout
	}
	return d
}

// summarizeError maps an expired deadline to ErrTimeout.
func summarizeError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return eris.Wrap(ErrTimeout, "source: summarize")
	}
	return eris.Wrap(err, "source: summarize")
}

func textOrEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", empty(NameSummarizer)
	}
	return text, nil
}
