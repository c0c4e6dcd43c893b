package data

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/repo"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Options selects and configures the repository implementations
type Options struct {
	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	LLMProvider string
	Anthropic   AnthropicConfig
	OpenAI      OpenAIConfig

	NATSURL   string // empty disables event fan-out
	NATSToken string

	Logger zerolog.Logger
}

// Repositories contains all repositories
type Repositories struct {
	Messages  repo.MessageRepo
	Gateway   repo.CompletionRepo
	Publisher repo.EventPublisher
}

// NewRepositories creates all repositories
func NewRepositories(ctx context.Context, opts Options) (*Repositories, error) {
	messages, err := newMessageRepo(ctx, opts)
	if err != nil {
		return nil, err
	}

	gateway, err := newCompletionRepo(opts)
	if err != nil {
		messages.Close()
		return nil, err
	}

	var publisher repo.EventPublisher = repo.NopPublisher{}
	if opts.NATSURL != "" {
		publisher, err = NewNATSPublisher(opts.NATSURL, opts.NATSToken, opts.Logger)
		if err != nil {
			messages.Close()
			return nil, err
		}
	}

	opts.Logger.Info().
		Str("store", opts.StoreDriver).
		Str("llm", gateway.Provider()).
		Bool("nats", opts.NATSURL != "").
		Msg("repositories initialized")

	return &Repositories{
		Messages:  messages,
		Gateway:   gateway,
		Publisher: publisher,
	}, nil
}

// Close releases all repositories
func (r *Repositories) Close() {
	r.Publisher.Close()
	_ = r.Messages.Close()
}

func newMessageRepo(ctx context.Context, opts Options) (repo.MessageRepo, error) {
	switch opts.StoreDriver {
	case DriverSQLite, "":
		return NewSQLiteMessageRepo(opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresMessageRepo(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.StoreDriver)
	}
}

func newCompletionRepo(opts Options) (repo.CompletionRepo, error) {
	switch opts.LLMProvider {
	case ProviderAnthropic, "":
		return NewAnthropicRepo(opts.Anthropic), nil
	case ProviderOpenAI:
		return NewOpenAIRepo(opts.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.LLMProvider)
	}
}
