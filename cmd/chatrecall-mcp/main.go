package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevRickLin/chatrecall/internal/biz/usecase"
	"github.com/DevRickLin/chatrecall/internal/conf"
	"github.com/DevRickLin/chatrecall/internal/data"
	"github.com/DevRickLin/chatrecall/internal/logger"
	"github.com/DevRickLin/chatrecall/internal/mcp"
	"github.com/DevRickLin/chatrecall/internal/service"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatrecall-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol, so logs always go to stderr
	lg := logger.New(cfg.ToLoggerConfig())
	log := lg.Component("mcp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recaller mcp.Recaller
	if apiURL := os.Getenv("CHATRECALL_API_URL"); apiURL != "" {
		timeout := time.Duration(cfg.LLM.TimeoutSeconds+10) * time.Second
		recaller = mcp.NewClient(apiURL, timeout)
		log.Info().Str("api", apiURL).Msg("forwarding recalls to running instance")
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		repos, err := data.NewRepositories(ctx, cfg.ToDataOptions(lg.Component("data")))
		if err != nil {
			return fmt.Errorf("failed to create repositories: %w", err)
		}
		defer repos.Close()

		extractor, err := usecase.NewKeywordExtractor(cfg.Pipeline.KeywordLanguages, nil)
		if err != nil {
			return fmt.Errorf("invalid config: KEYWORD_LANGUAGES: %w", err)
		}
		d, err := service.NewDispatcher(cfg.ToDispatcherConfig(), service.DispatcherDeps{
			Messages:  repos.Messages,
			Gateway:   repos.Gateway,
			Publisher: repos.Publisher,
			Extractor: extractor,
			Prompts:   usecase.NewPromptBuilder(cfg.ToPromptConfig()),
			Logger:    lg.Component("dispatcher"),
		})
		if err != nil {
			return err
		}
		recaller = mcp.Local{Dispatcher: d}
	}

	log.Info().Str("version", version).Msg("serving MCP over stdio")
	return mcp.NewServer(recaller, version, log).Run(ctx)
}
