package repo

import "context"

// CompletionRepo is the LLM completion gateway interface
type CompletionRepo interface {
	// Complete sends a single-turn prompt and returns the generated text
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)

	// Provider names the backing service, e.g. "anthropic"
	Provider() string
}
