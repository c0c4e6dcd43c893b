package domain

import (
	"errors"
	"testing"
)

var testCommands = CommandSet{
	Summarize:    []string{"/summary", "/missmi"},
	Ask:          []string{"/ask"},
	DefaultCount: 50,
	MaxCount:     500,
}

func TestParse_OrdinaryText(t *testing.T) {
	for _, text := range []string{"", "   ", "hello there", "what is /summary?", "summary 10"} {
		cmd, err := testCommands.Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", text, err)
		}
		if cmd.Kind != CommandNone {
			t.Errorf("Parse(%q) expected CommandNone, got %s", text, cmd.Kind)
		}
	}
}

func TestParse_SummarizeDefaultCount(t *testing.T) {
	cmd, err := testCommands.Parse("/summary")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Kind != CommandSummarize || cmd.Count != 50 {
		t.Errorf("Expected summarize 50, got %s %d", cmd.Kind, cmd.Count)
	}
}

func TestParse_SummarizeWithCount(t *testing.T) {
	cmd, err := testCommands.Parse("/missmi 120 please")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Kind != CommandSummarize || cmd.Count != 120 {
		t.Errorf("Expected summarize 120, got %s %d", cmd.Kind, cmd.Count)
	}
}

func TestParse_SummarizeClampsToMax(t *testing.T) {
	cmd, err := testCommands.Parse("/summary 100000")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Count != 500 {
		t.Errorf("Expected count clamped to 500, got %d", cmd.Count)
	}
}

func TestParse_SummarizeRejectsBadCount(t *testing.T) {
	for _, text := range []string{"/summary 0", "/summary -3", "/summary abc", "/summary 1.5"} {
		_, err := testCommands.Parse(text)
		var usage *UsageError
		if !errors.As(err, &usage) {
			t.Fatalf("Parse(%q) expected UsageError, got %v", text, err)
		}
		if usage.Kind != CommandSummarize {
			t.Errorf("Parse(%q) expected summarize usage, got %s", text, usage.Kind)
		}
	}
}

func TestParse_Ask(t *testing.T) {
	cmd, err := testCommands.Parse("/ask   When is the exam? ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Kind != CommandAsk {
		t.Fatalf("Expected ask, got %s", cmd.Kind)
	}
	if cmd.Query != "When is the exam?" {
		t.Errorf("Unexpected query %q", cmd.Query)
	}
}

func TestParse_AskMissingQuery(t *testing.T) {
	_, err := testCommands.Parse("/ask   ")
	var usage *UsageError
	if !errors.As(err, &usage) || usage.Kind != CommandAsk {
		t.Fatalf("Expected ask UsageError, got %v", err)
	}
}

func TestParse_StripsBotSuffixAndIgnoresCase(t *testing.T) {
	cmd, err := testCommands.Parse("/ASK@RecallBot where do we meet")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Kind != CommandAsk || cmd.Query != "where do we meet" {
		t.Errorf("Unexpected command %+v", cmd)
	}

	cmd, err = testCommands.Parse("/summary@RecallBot 7")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Kind != CommandSummarize || cmd.Count != 7 {
		t.Errorf("Unexpected command %+v", cmd)
	}
}
