package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

var (
	// ErrNoContext means there is nothing to send to the completion gateway
	ErrNoContext = errors.New("no context available")
	// ErrMissingQuery means an answer prompt was requested without a question
	ErrMissingQuery = errors.New("missing query")
)

// PromptMode selects the instruction wrapped around an excerpt
type PromptMode int

const (
	ModeSummarize PromptMode = iota
	ModeAnswer
)

func (m PromptMode) String() string {
	if m == ModeAnswer {
		return "answer"
	}
	return "summarize"
}

// Template placeholders
const (
	PlaceholderConversation = "{{conversation}}"
	PlaceholderQuery        = "{{query}}"
)

// PromptConfig contains prompt configuration
type PromptConfig struct {
	SummarizeTemplate string // supports {{conversation}}
	AnswerTemplate    string // supports {{conversation}}, {{query}}
	EmptyExcerpt      string // rendered in place of an empty excerpt when AllowEmptyAnswer is set
	UnknownAuthor     string // label for messages without an author

	// AllowEmptyAnswer lets answer prompts go out without any excerpt
	AllowEmptyAnswer bool
}

// DefaultPromptConfig contains default prompt configuration
var DefaultPromptConfig = PromptConfig{
	SummarizeTemplate: `Summarize the following group chat conversation clearly and briefly.
Mention who said what when it matters, and keep the original language of the chat.

{{conversation}}`,
	AnswerTemplate: `Answer the question below using the group chat excerpt that follows it.
If the excerpt does not contain the answer, answer from general knowledge and state explicitly that the answer does not come from the conversation.
Reply in the language of the question.

Question: {{query}}

Excerpt:
{{conversation}}`,
	EmptyExcerpt:  "(no relevant messages were found in the conversation)",
	UnknownAuthor: "unknown",
}

// PromptBuilder renders excerpts into completion prompts
type PromptBuilder struct {
	cfg PromptConfig
}

// NewPromptBuilder creates a prompt builder, filling empty fields with defaults
func NewPromptBuilder(cfg PromptConfig) *PromptBuilder {
	if cfg.SummarizeTemplate == "" {
		cfg.SummarizeTemplate = DefaultPromptConfig.SummarizeTemplate
	}
	if cfg.AnswerTemplate == "" {
		cfg.AnswerTemplate = DefaultPromptConfig.AnswerTemplate
	}
	if cfg.EmptyExcerpt == "" {
		cfg.EmptyExcerpt = DefaultPromptConfig.EmptyExcerpt
	}
	if cfg.UnknownAuthor == "" {
		cfg.UnknownAuthor = DefaultPromptConfig.UnknownAuthor
	}
	return &PromptBuilder{cfg: cfg}
}

// Build renders a prompt for mode over excerpt.
// It returns ErrNoContext for an empty excerpt unless empty answers are allowed,
// and ErrMissingQuery for an answer prompt without a question.
func (b *PromptBuilder) Build(mode PromptMode, excerpt []domain.Message, query string) (string, error) {
	query = strings.TrimSpace(query)

	switch mode {
	case ModeSummarize:
		if len(excerpt) == 0 {
			return "", ErrNoContext
		}
		return b.fill(b.cfg.SummarizeTemplate, b.Render(excerpt), ""), nil

	case ModeAnswer:
		if query == "" {
			return "", ErrMissingQuery
		}
		conversation := b.Render(excerpt)
		if len(excerpt) == 0 {
			if !b.cfg.AllowEmptyAnswer {
				return "", ErrNoContext
			}
			conversation = b.cfg.EmptyExcerpt
		}
		return b.fill(b.cfg.AnswerTemplate, conversation, query), nil

	default:
		return "", fmt.Errorf("unknown prompt mode %d", mode)
	}
}

// Render formats messages as "author: text" lines in the given order
func (b *PromptBuilder) Render(messages []domain.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		author := m.Author
		if author == "" {
			author = b.cfg.UnknownAuthor
		}
		sb.WriteString(author)
		sb.WriteString(": ")
		sb.WriteString(m.Text)
	}
	return sb.String()
}

// fill substitutes placeholders in a single pass; placeholders inside
// substituted text are not expanded
func (b *PromptBuilder) fill(template, conversation, query string) string {
	return strings.NewReplacer(
		PlaceholderConversation, conversation,
		PlaceholderQuery, query,
	).Replace(template)
}
