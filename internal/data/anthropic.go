package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/DevRickLin/chatrecall/internal/biz/repo"
)

// DefaultAnthropicModel is a small, fast model suited to chat summaries
const DefaultAnthropicModel = "claude-3-haiku-20240307"

// AnthropicConfig contains Anthropic gateway configuration
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
	Timeout time.Duration
}

// anthropicRepo implements the completion gateway with the Messages API
type anthropicRepo struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicRepo creates an Anthropic completion gateway.
// The SDK's automatic retries are disabled; a failed call surfaces immediately.
func NewAnthropicRepo(cfg AnthropicConfig) repo.CompletionRepo {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicRepo{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Complete performs a single-turn completion and returns the concatenated text
func (r *anthropicRepo) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(maxOutputTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic messages: no text in response")
	}
	return b.String(), nil
}

func (r *anthropicRepo) Provider() string {
	return "anthropic"
}
