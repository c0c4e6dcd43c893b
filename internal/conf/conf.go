package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/biz/usecase"
	"github.com/DevRickLin/chatrecall/internal/data"
	"github.com/DevRickLin/chatrecall/internal/logger"
	"github.com/DevRickLin/chatrecall/internal/service"
)

// Telegram delivery modes
const (
	TelegramPolling = "polling"
	TelegramWebhook = "webhook"
)

// ProviderMoonshot selects the OpenAI-compatible gateway pointed at Moonshot
const ProviderMoonshot = "moonshot"

const defaultMoonshotModel = "moonshot-v1-8k"

// Config represents application configuration
type Config struct {
	Telegram TelegramConfig
	Feishu   FeishuConfig
	Store    StoreConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	HTTP     HTTPConfig
	NATS     NATSConfig
	Log      LogConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig
}

// TelegramConfig contains Telegram configuration
type TelegramConfig struct {
	Token              string
	Mode               string // polling or webhook
	PollTimeoutSeconds int
	WebhookSecret      string
	APIBase            string
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// StoreConfig contains message store configuration
type StoreConfig struct {
	Driver      string // sqlite or postgres
	SQLitePath  string
	DatabaseURL string
}

// LLMConfig contains completion gateway configuration
type LLMConfig struct {
	Provider        string // anthropic, openai or moonshot
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	MaxOutputTokens int
	TimeoutSeconds  int
}

// PipelineConfig contains summarize/answer pipeline settings
type PipelineConfig struct {
	SummarizeCommands  []string
	AskCommands        []string
	SummaryDefault     int
	SummaryMax         int
	AnswerPoolSize     int
	WindowRadius       int
	MaxExcerptMessages int
	KeywordTopN        int
	KeywordLanguages   []string
	MinContextMessages int
	NoMatchPolicy      string
	ArchiveGroupsOnly  bool
	SendWorkingNotice  bool
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Addr string
}

// NATSConfig contains event fan-out configuration
type NATSConfig struct {
	URL           string // empty disables publishing
	Token         string
	SubjectPrefix string
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	d := service.DefaultDispatcherConfig

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		homeDir, _ := os.UserHomeDir()
		sqlitePath = filepath.Join(homeDir, ".chatrecall", "messages.db")
	}

	prompts, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Telegram: TelegramConfig{
			Token:              os.Getenv("TELEGRAM_BOT_TOKEN"),
			Mode:               strings.ToLower(envStr("TELEGRAM_MODE", TelegramPolling)),
			PollTimeoutSeconds: envInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 30),
			WebhookSecret:      os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			APIBase:            os.Getenv("TELEGRAM_API_BASE"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(envStr("STORE_DRIVER", data.DriverSQLite)),
			SQLitePath:  sqlitePath,
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(envStr("LLM_PROVIDER", data.ProviderAnthropic)),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  envStr("ANTHROPIC_MODEL", data.DefaultAnthropicModel),
			OpenAIAPIKey:    envStr("OPENAI_API_KEY", os.Getenv("MOONSHOT_API_KEY")),
			OpenAIModel:     envStr("OPENAI_MODEL", os.Getenv("MOONSHOT_MODEL")),
			OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
			MaxOutputTokens: envInt("LLM_MAX_OUTPUT_TOKENS", d.MaxOutputTokens),
			TimeoutSeconds:  envInt("LLM_TIMEOUT_SECONDS", 60),
		},
		Pipeline: PipelineConfig{
			SummarizeCommands:  envList("SUMMARIZE_COMMANDS", d.Commands.Summarize),
			AskCommands:        envList("ASK_COMMANDS", d.Commands.Ask),
			SummaryDefault:     envInt("SUMMARY_DEFAULT_COUNT", d.Commands.DefaultCount),
			SummaryMax:         envInt("SUMMARY_MAX_COUNT", d.Commands.MaxCount),
			AnswerPoolSize:     envInt("ANSWER_POOL_SIZE", d.AnswerPoolSize),
			WindowRadius:       envInt("WINDOW_RADIUS", d.WindowRadius),
			MaxExcerptMessages: envInt("MAX_EXCERPT_MESSAGES", d.MaxExcerptMessages),
			KeywordTopN:        envInt("KEYWORD_TOP_N", d.KeywordTopN),
			KeywordLanguages:   envList("KEYWORD_LANGUAGES", usecase.DefaultKeywordLanguages),
			MinContextMessages: envInt("MIN_CONTEXT_MESSAGES", d.MinContextMessages),
			NoMatchPolicy:      strings.ToLower(envStr("NO_MATCH_POLICY", string(d.NoMatchPolicy))),
			ArchiveGroupsOnly:  envBool("ARCHIVE_GROUPS_ONLY", d.ArchiveGroupsOnly),
			SendWorkingNotice:  envBool("SEND_WORKING_NOTICE", d.SendWorkingNotice),
		},
		HTTP: HTTPConfig{
			Addr: envStr("HTTP_ADDR", ":8080"),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			Token:         os.Getenv("NATS_TOKEN"),
			SubjectPrefix: envStr("NATS_SUBJECT_PREFIX", d.SubjectPrefix),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Pretty: envBool("LOG_PRETTY", false),
		},
		Prompts: prompts,
	}, nil
}

// HasTelegram reports whether the Telegram transport is configured
func (c *Config) HasTelegram() bool {
	return c.Telegram.Token != ""
}

// HasFeishu reports whether the Feishu transport is configured
func (c *Config) HasFeishu() bool {
	return c.Feishu.AppID != "" && c.Feishu.AppSecret != ""
}

// Validate validates the configuration shared by every entry point
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case data.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return &ConfigError{Field: "SQLITE_PATH", Message: "required"}
		}
	case data.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return &ConfigError{Field: "DATABASE_URL", Message: "required for the postgres store"}
		}
	default:
		return &ConfigError{Field: "STORE_DRIVER", Message: "unknown driver " + strconv.Quote(c.Store.Driver)}
	}

	switch c.LLM.Provider {
	case data.ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return &ConfigError{Field: "ANTHROPIC_API_KEY", Message: "required"}
		}
	case data.ProviderOpenAI, ProviderMoonshot:
		if c.LLM.OpenAIAPIKey == "" {
			return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
		}
	default:
		return &ConfigError{Field: "LLM_PROVIDER", Message: "unknown provider " + strconv.Quote(c.LLM.Provider)}
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return &ConfigError{Field: "LLM_MAX_OUTPUT_TOKENS", Message: "must be positive"}
	}

	p := c.Pipeline
	if len(p.SummarizeCommands) == 0 || len(p.AskCommands) == 0 {
		return &ConfigError{Field: "SUMMARIZE_COMMANDS/ASK_COMMANDS", Message: "at least one command name required"}
	}
	if p.SummaryDefault <= 0 {
		return &ConfigError{Field: "SUMMARY_DEFAULT_COUNT", Message: "must be positive"}
	}
	if p.SummaryMax < p.SummaryDefault {
		return &ConfigError{Field: "SUMMARY_MAX_COUNT", Message: "must not be below SUMMARY_DEFAULT_COUNT"}
	}
	if p.AnswerPoolSize <= 0 {
		return &ConfigError{Field: "ANSWER_POOL_SIZE", Message: "must be positive"}
	}
	if p.WindowRadius < 0 {
		return &ConfigError{Field: "WINDOW_RADIUS", Message: "must not be negative"}
	}
	switch service.NoMatchPolicy(p.NoMatchPolicy) {
	case service.NoMatchSkip, service.NoMatchAsk:
	default:
		return &ConfigError{Field: "NO_MATCH_POLICY", Message: "must be skip or ask"}
	}
	return nil
}

// ValidateTransports checks that at least one chat transport is configured
func (c *Config) ValidateTransports() error {
	if (c.Feishu.AppID == "") != (c.Feishu.AppSecret == "") {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "both must be set"}
	}
	if !c.HasTelegram() && !c.HasFeishu() {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN/FEISHU_APP_ID", Message: "at least one transport required"}
	}
	if c.HasTelegram() {
		switch c.Telegram.Mode {
		case TelegramPolling, TelegramWebhook:
		default:
			return &ConfigError{Field: "TELEGRAM_MODE", Message: "must be polling or webhook"}
		}
	}
	return nil
}

// ToDataOptions converts to repository options
func (c *Config) ToDataOptions(log zerolog.Logger) data.Options {
	timeout := time.Duration(c.LLM.TimeoutSeconds) * time.Second

	provider := c.LLM.Provider
	openaiCfg := data.OpenAIConfig{
		APIKey:  c.LLM.OpenAIAPIKey,
		Model:   c.LLM.OpenAIModel,
		BaseURL: c.LLM.OpenAIBaseURL,
		Timeout: timeout,
	}
	if provider == ProviderMoonshot {
		provider = data.ProviderOpenAI
		if openaiCfg.BaseURL == "" {
			openaiCfg.BaseURL = data.MoonshotBaseURL
		}
		if openaiCfg.Model == "" {
			openaiCfg.Model = defaultMoonshotModel
		}
	}

	return data.Options{
		StoreDriver: c.Store.Driver,
		SQLitePath:  c.Store.SQLitePath,
		DatabaseURL: c.Store.DatabaseURL,
		LLMProvider: provider,
		Anthropic: data.AnthropicConfig{
			APIKey:  c.LLM.AnthropicAPIKey,
			Model:   c.LLM.AnthropicModel,
			Timeout: timeout,
		},
		OpenAI:    openaiCfg,
		NATSURL:   c.NATS.URL,
		NATSToken: c.NATS.Token,
		Logger:    log,
	}
}

// ToDispatcherConfig converts to dispatcher configuration
func (c *Config) ToDispatcherConfig() service.DispatcherConfig {
	p := c.Pipeline
	cfg := service.DispatcherConfig{
		Commands: domain.CommandSet{
			Summarize:    p.SummarizeCommands,
			Ask:          p.AskCommands,
			DefaultCount: p.SummaryDefault,
			MaxCount:     p.SummaryMax,
		},
		AnswerPoolSize:     p.AnswerPoolSize,
		WindowRadius:       p.WindowRadius,
		MaxExcerptMessages: p.MaxExcerptMessages,
		KeywordTopN:        p.KeywordTopN,
		MinContextMessages: p.MinContextMessages,
		NoMatchPolicy:      service.NoMatchPolicy(p.NoMatchPolicy),
		MaxOutputTokens:    c.LLM.MaxOutputTokens,
		ArchiveGroupsOnly:  p.ArchiveGroupsOnly,
		SendWorkingNotice:  p.SendWorkingNotice,
		SubjectPrefix:      c.NATS.SubjectPrefix,
		Replies:            service.DefaultReplies,
	}
	if c.Prompts != nil {
		cfg.Replies = c.Prompts.ToReplies()
	}
	return cfg
}

// ToPromptConfig converts to prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	cfg := usecase.DefaultPromptConfig
	if c.Prompts != nil {
		cfg = c.Prompts.ToPromptConfig()
	}
	cfg.AllowEmptyAnswer = service.NoMatchPolicy(c.Pipeline.NoMatchPolicy) == service.NoMatchAsk
	return cfg
}

// ToLoggerConfig converts to logger configuration
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty items
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
