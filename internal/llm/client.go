// Package llm wraps the text-completion service behind the Completer
// interface: a single prompt in, a single string out, with a bounded
// timeout and no retries.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"tutorboard/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second
	temperature    = 0.7
	maxTokens      = 2000
)

// Client calls the OpenAI chat-completion API. Safe for concurrent use.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewClient builds a completion client. baseURL may be empty to use the
// default API endpoint; timeout <= 0 falls back to 30 seconds.
func NewClient(apiKey, baseURL, model string, timeout time.Duration, log *logger.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

// Complete makes one chat-completion attempt for the prompt. Any transport
// or API failure is reported as ErrCompletionUnavailable.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.log.Warn("completion call failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCompletionUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
