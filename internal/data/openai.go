package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/DevRickLin/chatrecall/internal/biz/repo"
)

// MoonshotBaseURL is the OpenAI-compatible Moonshot endpoint
const MoonshotBaseURL = "https://api.moonshot.cn/v1"

// OpenAIConfig contains configuration for any OpenAI-compatible endpoint
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty = api.openai.com
	Timeout time.Duration
}

// openaiRepo implements the completion gateway using the OpenAI-compatible interface
type openaiRepo struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIRepo creates an OpenAI-compatible completion gateway
func NewOpenAIRepo(cfg OpenAIConfig) repo.CompletionRepo {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &openaiRepo{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Complete sends the prompt as a single user message
func (r *openaiRepo) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (r *openaiRepo) Provider() string {
	return "openai"
}
