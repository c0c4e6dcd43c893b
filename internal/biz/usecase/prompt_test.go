package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

var promptExcerpt = []domain.Message{
	{Author: "anna", Text: "when is the exam?"},
	{Author: "pau", Text: "monday at 9"},
}

func TestBuild_Summarize(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{SummarizeTemplate: "Summarize:\n{{conversation}}"})
	prompt, err := b.Build(ModeSummarize, promptExcerpt, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "Summarize:\nanna: when is the exam?\npau: monday at 9"
	if prompt != want {
		t.Errorf("Expected %q, got %q", want, prompt)
	}
}

func TestBuild_SummarizeEmpty(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{AllowEmptyAnswer: true})
	if _, err := b.Build(ModeSummarize, nil, ""); !errors.Is(err, ErrNoContext) {
		t.Errorf("Expected ErrNoContext, got %v", err)
	}
}

func TestBuild_Answer(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{})
	prompt, err := b.Build(ModeAnswer, promptExcerpt, "  When is the exam? ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "Question: When is the exam?") {
		t.Errorf("Expected query in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "anna: when is the exam?\npau: monday at 9") {
		t.Errorf("Expected rendered excerpt in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "does not come from the conversation") {
		t.Errorf("Expected unsourced-answer instruction, got %q", prompt)
	}
}

func TestBuild_AnswerMissingQuery(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{})
	if _, err := b.Build(ModeAnswer, promptExcerpt, "   "); !errors.Is(err, ErrMissingQuery) {
		t.Errorf("Expected ErrMissingQuery, got %v", err)
	}
}

func TestBuild_AnswerEmptyExcerpt(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{})
	if _, err := b.Build(ModeAnswer, nil, "when?"); !errors.Is(err, ErrNoContext) {
		t.Errorf("Expected ErrNoContext, got %v", err)
	}

	b = NewPromptBuilder(PromptConfig{AllowEmptyAnswer: true, EmptyExcerpt: "(nothing)"})
	prompt, err := b.Build(ModeAnswer, nil, "when?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "(nothing)") {
		t.Errorf("Expected empty placeholder, got %q", prompt)
	}
}

func TestBuild_PlaceholderInMessageNotExpanded(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{AnswerTemplate: "Q={{query}}\n{{conversation}}"})
	excerpt := []domain.Message{{Author: "eve", Text: "{{query}}"}}
	prompt, err := b.Build(ModeAnswer, excerpt, "real question")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if prompt != "Q=real question\neve: {{query}}" {
		t.Errorf("Unexpected prompt %q", prompt)
	}
}

func TestBuild_UnknownMode(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{})
	if _, err := b.Build(PromptMode(9), promptExcerpt, "q"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestRender_UnknownAuthor(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{})
	got := b.Render([]domain.Message{{Text: "hi"}})
	if got != "unknown: hi" {
		t.Errorf("Expected %q, got %q", "unknown: hi", got)
	}
}
