package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRepositories_Defaults(t *testing.T) {
	repos, err := NewRepositories(context.Background(), Options{
		SQLitePath: filepath.Join(t.TempDir(), "messages.db"),
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer repos.Close()

	if repos.Gateway.Provider() != ProviderAnthropic {
		t.Errorf("Expected anthropic gateway, got %s", repos.Gateway.Provider())
	}
	if err := repos.Publisher.Publish("x", nil); err != nil {
		t.Errorf("Expected no-op publisher, got %v", err)
	}
}

func TestNewRepositories_OpenAI(t *testing.T) {
	repos, err := NewRepositories(context.Background(), Options{
		SQLitePath:  filepath.Join(t.TempDir(), "messages.db"),
		LLMProvider: ProviderOpenAI,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer repos.Close()

	if repos.Gateway.Provider() != ProviderOpenAI {
		t.Errorf("Expected openai gateway, got %s", repos.Gateway.Provider())
	}
}

func TestNewRepositories_UnknownDrivers(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRepositories(ctx, Options{StoreDriver: "mysql"}); err == nil {
		t.Error("Expected error for unknown store driver")
	}
	if _, err := NewRepositories(ctx, Options{
		SQLitePath:  filepath.Join(t.TempDir(), "messages.db"),
		LLMProvider: "bard",
	}); err == nil {
		t.Error("Expected error for unknown llm provider")
	}
}
