package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/DevRickLin/chatrecall/internal/biz/usecase"
	"github.com/DevRickLin/chatrecall/internal/service"
)

// PromptsConfig contains prompt templates and reply texts loaded from YAML
type PromptsConfig struct {
	Prompts PromptTemplates `yaml:"prompts"`
	Replies ReplyTexts      `yaml:"replies"`

	// Source is the file the configuration was read from, empty for defaults
	Source string `yaml:"-"`
}

// PromptTemplates contains completion prompt templates
type PromptTemplates struct {
	Summarize     string `yaml:"summarize"`
	Answer        string `yaml:"answer"`
	EmptyExcerpt  string `yaml:"empty_excerpt"`
	UnknownAuthor string `yaml:"unknown_author"`
}

// ReplyTexts contains the fixed chat replies
type ReplyTexts struct {
	SummarizeUsage    string `yaml:"summarize_usage"`
	AskUsage          string `yaml:"ask_usage"`
	NotEnoughContext  string `yaml:"not_enough_context"`
	NoRelevantContext string `yaml:"no_relevant_context"`
	SummarizeWorking  string `yaml:"summarize_working"`
	AnswerWorking     string `yaml:"answer_working"`
	Failure           string `yaml:"failure"`
}

// LoadPromptsConfig loads prompts configuration from a YAML file.
// With an empty path the usual locations are searched and defaults are
// used when none exists; an explicit path must exist.
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/chatrecall/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var raw []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			raw, loadedPath = b, p
			break
		}
		if configPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
	}

	if raw == nil {
		return DefaultPromptsConfig(), nil
	}

	var config PromptsConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	config.fillDefaults()
	config.Source = loadedPath
	return &config, nil
}

// DefaultPromptsConfig returns the built-in prompts and replies
func DefaultPromptsConfig() *PromptsConfig {
	p := usecase.DefaultPromptConfig
	r := service.DefaultReplies
	return &PromptsConfig{
		Prompts: PromptTemplates{
			Summarize:     p.SummarizeTemplate,
			Answer:        p.AnswerTemplate,
			EmptyExcerpt:  p.EmptyExcerpt,
			UnknownAuthor: p.UnknownAuthor,
		},
		Replies: ReplyTexts{
			SummarizeUsage:    r.SummarizeUsage,
			AskUsage:          r.AskUsage,
			NotEnoughContext:  r.NotEnoughContext,
			NoRelevantContext: r.NoRelevantContext,
			SummarizeWorking:  r.SummarizeWorking,
			AnswerWorking:     r.AnswerWorking,
			Failure:           r.Failure,
		},
	}
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Prompts.Summarize, defaults.Prompts.Summarize)
	fill(&c.Prompts.Answer, defaults.Prompts.Answer)
	fill(&c.Prompts.EmptyExcerpt, defaults.Prompts.EmptyExcerpt)
	fill(&c.Prompts.UnknownAuthor, defaults.Prompts.UnknownAuthor)

	fill(&c.Replies.SummarizeUsage, defaults.Replies.SummarizeUsage)
	fill(&c.Replies.AskUsage, defaults.Replies.AskUsage)
	fill(&c.Replies.NotEnoughContext, defaults.Replies.NotEnoughContext)
	fill(&c.Replies.NoRelevantContext, defaults.Replies.NoRelevantContext)
	fill(&c.Replies.SummarizeWorking, defaults.Replies.SummarizeWorking)
	fill(&c.Replies.AnswerWorking, defaults.Replies.AnswerWorking)
	fill(&c.Replies.Failure, defaults.Replies.Failure)
}

// ToPromptConfig converts to prompt builder configuration
func (c *PromptsConfig) ToPromptConfig() usecase.PromptConfig {
	return usecase.PromptConfig{
		SummarizeTemplate: c.Prompts.Summarize,
		AnswerTemplate:    c.Prompts.Answer,
		EmptyExcerpt:      c.Prompts.EmptyExcerpt,
		UnknownAuthor:     c.Prompts.UnknownAuthor,
	}
}

// ToReplies converts to dispatcher reply texts
func (c *PromptsConfig) ToReplies() service.Replies {
	return service.Replies{
		SummarizeUsage:    c.Replies.SummarizeUsage,
		AskUsage:          c.Replies.AskUsage,
		NotEnoughContext:  c.Replies.NotEnoughContext,
		NoRelevantContext: c.Replies.NoRelevantContext,
		SummarizeWorking:  c.Replies.SummarizeWorking,
		AnswerWorking:     c.Replies.AnswerWorking,
		Failure:           c.Replies.Failure,
	}
}
