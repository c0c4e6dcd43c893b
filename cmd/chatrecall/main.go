package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/DevRickLin/chatrecall/internal/biz/repo"
	"github.com/DevRickLin/chatrecall/internal/biz/usecase"
	"github.com/DevRickLin/chatrecall/internal/conf"
	"github.com/DevRickLin/chatrecall/internal/data"
	"github.com/DevRickLin/chatrecall/internal/infra/feishu"
	"github.com/DevRickLin/chatrecall/internal/infra/telegram"
	"github.com/DevRickLin/chatrecall/internal/logger"
	"github.com/DevRickLin/chatrecall/internal/metrics"
	"github.com/DevRickLin/chatrecall/internal/server"
	"github.com/DevRickLin/chatrecall/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatrecall: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file; plain environment variables work without it
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ValidateTransports(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lg := logger.New(cfg.ToLoggerConfig())
	log := lg.Component("main")
	if cfg.Prompts.Source != "" {
		log.Info().Str("path", cfg.Prompts.Source).Msg("prompts loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	repos, err := data.NewRepositories(ctx, cfg.ToDataOptions(lg.Component("data")))
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	extractor, err := usecase.NewKeywordExtractor(cfg.Pipeline.KeywordLanguages, nil)
	if err != nil {
		return fmt.Errorf("invalid config: KEYWORD_LANGUAGES: %w", err)
	}
	prompts := usecase.NewPromptBuilder(cfg.ToPromptConfig())

	// one dispatcher per transport, each replying through its own sender
	newDispatcher := func(transport string, sender repo.ReplySender) (*service.Dispatcher, error) {
		return service.NewDispatcher(cfg.ToDispatcherConfig(), service.DispatcherDeps{
			Messages:  repos.Messages,
			Gateway:   repos.Gateway,
			Sender:    sender,
			Publisher: repos.Publisher,
			Extractor: extractor,
			Prompts:   prompts,
			Metrics:   m,
			Logger:    dispatcherLogger(lg, transport),
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	direct, err := newDispatcher("api", nil)
	if err != nil {
		return err
	}
	httpDeps := server.HTTPDeps{Metrics: m, Recaller: direct}

	if cfg.HasTelegram() {
		// the HTTP timeout has to outlast the long poll
		timeout := time.Duration(cfg.Telegram.PollTimeoutSeconds+10) * time.Second
		tgClient := telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.Token, timeout)
		d, err := newDispatcher("telegram", tgClient)
		if err != nil {
			return err
		}
		tg := server.NewTelegramServer(tgClient, server.TelegramConfig{
			PollTimeout:   cfg.Telegram.PollTimeoutSeconds,
			WebhookSecret: cfg.Telegram.WebhookSecret,
		}, d, m, lg.Component("telegram"))

		if cfg.Telegram.Mode == conf.TelegramWebhook {
			httpDeps.Telegram = tg
		} else {
			g.Go(func() error { return tg.Poll(gctx) })
		}
	}

	if cfg.HasFeishu() {
		fsClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, lg.Component("feishu"))
		d, err := newDispatcher("feishu", fsClient)
		if err != nil {
			return err
		}
		fs := server.NewFeishuServer(fsClient, d, m, lg.Component("feishu"))
		g.Go(func() error { return fs.Run(gctx) })
	}

	httpSrv := server.NewHTTPServer(cfg.HTTP.Addr, httpDeps, lg.Component("http"))
	g.Go(func() error { return httpSrv.Run(gctx) })

	log.Info().
		Bool("telegram", cfg.HasTelegram()).
		Str("telegram_mode", cfg.Telegram.Mode).
		Bool("feishu", cfg.HasFeishu()).
		Str("store", cfg.Store.Driver).
		Str("llm", repos.Gateway.Provider()).
		Msg("chatrecall started")

	err = g.Wait()
	log.Info().Msg("shutting down")
	return err
}

func dispatcherLogger(lg *logger.Logger, transport string) zerolog.Logger {
	return lg.Component("dispatcher").With().Str("transport", transport).Logger()
}
