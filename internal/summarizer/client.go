// Package summarizer wraps the OpenAI chat completions API with
// rate-limit-aware retries and turns email text into summaries and
// extracted calendar events.
package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/markwbrown/TLDR/internal/events"
	"github.com/markwbrown/TLDR/internal/models"
)

// completionAPI is the slice of the OpenAI client the summarizer uses;
// tests substitute a fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Prompts routinely elicit responses shorter than the input; 1.5x the
// prompt estimate leaves headroom for the response in the budget.
const responseHeadroomNum, responseHeadroomDen = 3, 2

// Options configures a Client.
type Options struct {
	APIKey              string
	Model               string
	ExtractEvents       bool // Ask the model for Event Detected lines and parse them
	TokenLimitPerMinute int
	MaxAttempts         int
}

// Client issues summarization requests against the OpenAI API. It is not
// safe for concurrent use; the pipeline is strictly sequential.
type Client struct {
	api           completionAPI
	model         string
	extractEvents bool
	backoff       Backoff
	budget        *TokenBudget
	logger        *slog.Logger

	// Injected for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewClient creates a summarization client.
func NewClient(logger *slog.Logger, opts Options) *Client {
	return &Client{
		api:           openai.NewClient(opts.APIKey),
		model:         opts.Model,
		extractEvents: opts.ExtractEvents,
		backoff: Backoff{
			Base:        time.Second,
			Max:         time.Minute,
			MaxAttempts: opts.MaxAttempts,
		},
		budget: &TokenBudget{Limit: opts.TokenLimitPerMinute},
		logger: logger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// SummarizeChunk summarizes one chunk of an email. part and total describe
// the chunk's position so the model knows it may be seeing a fragment.
func (c *Client) SummarizeChunk(ctx context.Context, text string, part, total int) (models.SummaryResult, error) {
	prompt := chunkPrompt(text, part, total, c.extractEvents)
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return models.SummaryResult{}, err
	}
	return c.result(prompt, content), nil
}

// Consolidate merges the ordered per-chunk results for one email into a
// single final result. With more than one chunk this issues a second-pass
// summarization call; events from all chunks and the final text are
// unioned and duplicates merged.
func (c *Client) Consolidate(ctx context.Context, partials []models.SummaryResult) (models.SummaryResult, error) {
	switch len(partials) {
	case 0:
		return models.SummaryResult{}, nil
	case 1:
		res := partials[0]
		res.Events = events.Merge(res.Events, events.DefaultMergeTolerance)
		res.HasEvents = len(res.Events) > 0
		return res, nil
	}

	texts := make([]string, len(partials))
	for i, p := range partials {
		texts[i] = p.Text
	}
	prompt := consolidationPrompt(strings.Join(texts, "\n\n"), c.extractEvents)
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return models.SummaryResult{}, err
	}

	res := c.result(prompt, content)
	if c.extractEvents {
		var all []models.Event
		for _, p := range partials {
			all = append(all, p.Events...)
		}
		all = append(all, res.Events...)
		res.Events = events.Merge(all, events.DefaultMergeTolerance)
		res.HasEvents = len(res.Events) > 0
	}
	return res, nil
}

func (c *Client) result(prompt, content string) models.SummaryResult {
	res := models.SummaryResult{
		Text:       content,
		TokensUsed: EstimateTokens(prompt) + EstimateTokens(content),
	}
	if c.extractEvents {
		res.Events = events.Parse(content)
		res.HasEvents = len(res.Events) > 0
	}
	return res
}

// complete sends one prompt, honoring the token budget and retrying
// rate-limit and transient failures with backoff.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	estimated := EstimateTokens(prompt) * responseHeadroomNum / responseHeadroomDen
	if wait := c.budget.Delay(c.now(), estimated); wait > 0 {
		c.logger.Debug("Token budget exhausted, waiting for window reset.", "wait", wait)
		c.sleep(wait)
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
				return "", &ParseError{Reason: "empty completion"}
			}
			return resp.Choices[0].Message.Content, nil
		}
		if !retryable(err) {
			return "", &APICallError{StatusCode: statusCode(err), Err: err}
		}
		lastErr = err
		delay, ok := c.backoff.Delay(attempt, retryAfterHint(err))
		if !ok {
			return "", &RateLimitExceededError{Attempts: attempt, Err: lastErr}
		}
		c.logger.Warn("Completion request failed, retrying.", "attempt", attempt, "delay", delay, "error", err)
		c.sleep(delay)
	}
}

// retryable reports whether an error is worth another attempt: rate limits,
// server-side failures, and transport-level errors. Client-side API errors
// and cancelled contexts are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
