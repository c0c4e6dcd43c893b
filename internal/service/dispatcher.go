package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/biz/repo"
	"github.com/DevRickLin/chatrecall/internal/biz/usecase"
	"github.com/DevRickLin/chatrecall/internal/metrics"
)

// NoMatchPolicy decides what happens when a question matches no archived message
type NoMatchPolicy string

const (
	NoMatchSkip NoMatchPolicy = "skip" // reply "no relevant context" without calling the LLM
	NoMatchAsk  NoMatchPolicy = "ask"  // call the LLM with an empty excerpt
)

// Replies contains the fixed texts the dispatcher sends
type Replies struct {
	SummarizeUsage    string
	AskUsage          string
	NotEnoughContext  string
	NoRelevantContext string
	SummarizeWorking  string
	AnswerWorking     string
	Failure           string
}

// DefaultReplies contains default reply texts
var DefaultReplies = Replies{
	SummarizeUsage:    "Usage: /summary [N] where N is a positive number of recent messages (default 50).",
	AskUsage:          "Usage: /ask <question>",
	NotEnoughContext:  "There are not enough messages in this chat yet.",
	NoRelevantContext: "I couldn't find anything in this chat related to your question.",
	SummarizeWorking:  "Generating summary...",
	AnswerWorking:     "Looking through the chat...",
	Failure:           "Something went wrong while generating the reply. Please try again later.",
}

// DispatcherConfig contains dispatcher configuration
type DispatcherConfig struct {
	Commands domain.CommandSet

	AnswerPoolSize     int // recent messages searched for an answer
	WindowRadius       int // neighbours kept around each keyword hit
	MaxExcerptMessages int // ceiling on the answer excerpt
	KeywordTopN        int
	MinContextMessages int
	NoMatchPolicy      NoMatchPolicy
	MaxOutputTokens    int

	ArchiveGroupsOnly bool
	SendWorkingNotice bool
	SubjectPrefix     string // NATS subject prefix

	Replies Replies
}

// DefaultDispatcherConfig contains default dispatcher configuration
var DefaultDispatcherConfig = DispatcherConfig{
	Commands: domain.CommandSet{
		Summarize:    []string{"/summary", "/missmi"},
		Ask:          []string{"/ask"},
		DefaultCount: 50,
		MaxCount:     500,
	},
	AnswerPoolSize:     500,
	WindowRadius:       usecase.DefaultWindowRadius,
	MaxExcerptMessages: 80,
	KeywordTopN:        usecase.DefaultTopN,
	MinContextMessages: 1,
	NoMatchPolicy:      NoMatchSkip,
	MaxOutputTokens:    500,
	ArchiveGroupsOnly:  true,
	SendWorkingNotice:  true,
	SubjectPrefix:      "chatrecall",
	Replies:            DefaultReplies,
}

// DispatcherDeps holds the collaborators of a Dispatcher
type DispatcherDeps struct {
	Messages  repo.MessageRepo
	Gateway   repo.CompletionRepo
	Sender    repo.ReplySender // nil when replies are returned instead of sent
	Publisher repo.EventPublisher
	Extractor *usecase.KeywordExtractor
	Prompts   *usecase.PromptBuilder
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Dispatcher routes inbound chat events to archival or to the
// summarize/answer pipeline. It holds no per-conversation state.
type Dispatcher struct {
	cfg       DispatcherConfig
	messages  repo.MessageRepo
	gateway   repo.CompletionRepo
	sender    repo.ReplySender
	publisher repo.EventPublisher
	extractor *usecase.KeywordExtractor
	prompts   *usecase.PromptBuilder
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(cfg DispatcherConfig, deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Messages == nil {
		return nil, errors.New("dispatcher: message repo is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("dispatcher: completion gateway is required")
	}

	if deps.Extractor == nil {
		extractor, err := usecase.NewKeywordExtractor(usecase.DefaultKeywordLanguages, nil)
		if err != nil {
			return nil, err
		}
		deps.Extractor = extractor
	}
	if deps.Prompts == nil {
		deps.Prompts = usecase.NewPromptBuilder(usecase.PromptConfig{AllowEmptyAnswer: cfg.NoMatchPolicy == NoMatchAsk})
	}
	if deps.Publisher == nil {
		deps.Publisher = repo.NopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if cfg.NoMatchPolicy == "" {
		cfg.NoMatchPolicy = NoMatchSkip
	}
	cfg.Replies = fillReplies(cfg.Replies)

	return &Dispatcher{
		cfg:       cfg,
		messages:  deps.Messages,
		gateway:   deps.Gateway,
		sender:    deps.Sender,
		publisher: deps.Publisher,
		extractor: deps.Extractor,
		prompts:   deps.Prompts,
		metrics:   deps.Metrics,
		log:       deps.Logger,
	}, nil
}

func fillReplies(r Replies) Replies {
	d := DefaultReplies
	if r.SummarizeUsage == "" {
		r.SummarizeUsage = d.SummarizeUsage
	}
	if r.AskUsage == "" {
		r.AskUsage = d.AskUsage
	}
	if r.NotEnoughContext == "" {
		r.NotEnoughContext = d.NotEnoughContext
	}
	if r.NoRelevantContext == "" {
		r.NoRelevantContext = d.NoRelevantContext
	}
	if r.SummarizeWorking == "" {
		r.SummarizeWorking = d.SummarizeWorking
	}
	if r.AnswerWorking == "" {
		r.AnswerWorking = d.AnswerWorking
	}
	if r.Failure == "" {
		r.Failure = d.Failure
	}
	return r
}

// Handle processes one inbound event and sends any reply through the sender
func (d *Dispatcher) Handle(ctx context.Context, ev *domain.InboundEvent) domain.Outcome {
	if ev == nil {
		return domain.OutcomeDropped
	}
	start := time.Now()

	cmd, err := d.cfg.Commands.Parse(ev.Text)

	var reply string
	var outcome domain.Outcome
	var usage *domain.UsageError
	switch {
	case errors.As(err, &usage):
		cmd.Kind = usage.Kind
		outcome = domain.OutcomeUsage
		reply = d.cfg.Replies.SummarizeUsage
		if usage.Kind == domain.CommandAsk {
			reply = d.cfg.Replies.AskUsage
		}
	case cmd.Kind == domain.CommandSummarize:
		reply, outcome = d.summarize(ctx, ev.ConversationID, cmd.Count, d.notifier(ctx, ev.ConversationID, d.cfg.Replies.SummarizeWorking))
	case cmd.Kind == domain.CommandAsk:
		reply, outcome = d.answer(ctx, ev.ConversationID, cmd.Query, d.notifier(ctx, ev.ConversationID, d.cfg.Replies.AnswerWorking))
	default:
		outcome = d.archive(ctx, ev)
	}

	if reply != "" {
		if err := d.send(ctx, ev.ConversationID, reply); err != nil {
			d.log.Error().Err(err).Str("conversation_id", ev.ConversationID).Msg("send reply failed")
			outcome = domain.OutcomeReplyFailed
		}
	}

	d.record(ev, cmd.Kind, outcome, time.Since(start))
	return outcome
}

// Summarize runs the summarize pipeline and returns the reply text.
// A zero count means the default, a negative one gets the usage reply
// without touching the store, and larger counts are clamped.
func (d *Dispatcher) Summarize(ctx context.Context, conversationID string, count int) (string, domain.Outcome) {
	if count < 0 {
		d.metrics.RecordEvent(string(domain.OutcomeUsage))
		return d.cfg.Replies.SummarizeUsage, domain.OutcomeUsage
	}
	if count == 0 {
		count = d.cfg.Commands.DefaultCount
	}
	if limit := d.cfg.Commands.MaxCount; limit > 0 && count > limit {
		count = limit
	}
	reply, outcome := d.summarize(ctx, conversationID, count, func() {})
	d.metrics.RecordEvent(string(outcome))
	return reply, outcome
}

// Answer runs the question pipeline and returns the reply text
func (d *Dispatcher) Answer(ctx context.Context, conversationID, query string) (string, domain.Outcome) {
	if strings.TrimSpace(query) == "" {
		d.metrics.RecordEvent(string(domain.OutcomeUsage))
		return d.cfg.Replies.AskUsage, domain.OutcomeUsage
	}
	reply, outcome := d.answer(ctx, conversationID, query, func() {})
	d.metrics.RecordEvent(string(outcome))
	return reply, outcome
}

func (d *Dispatcher) archive(ctx context.Context, ev *domain.InboundEvent) domain.Outcome {
	if ev.IsBlank() {
		return domain.OutcomeDropped
	}
	if d.cfg.ArchiveGroupsOnly && !ev.IsGroup() {
		return domain.OutcomeDropped
	}

	msg := ev.ToMessage()
	if err := d.messages.Append(ctx, msg); err != nil {
		d.log.Error().Err(err).
			Str("conversation_id", ev.ConversationID).
			Str("message_id", ev.MessageID).
			Msg("archive message failed")
		return domain.OutcomeArchiveFailed
	}

	d.metrics.ArchivedTotal.Inc()
	d.publish("message.archived", msg)
	return domain.OutcomeArchived
}

func (d *Dispatcher) summarize(ctx context.Context, conversationID string, count int, notify func()) (string, domain.Outcome) {
	recent, err := d.messages.Recent(ctx, conversationID, count)
	if err != nil {
		d.log.Error().Err(err).Str("conversation_id", conversationID).Msg("read archive failed")
		return d.cfg.Replies.Failure, domain.OutcomeStoreFailed
	}
	if len(recent) < d.minContext() {
		return d.cfg.Replies.NotEnoughContext, domain.OutcomeNotEnoughContext
	}

	excerpt := usecase.BoundWindow(domain.MessageWindow{Messages: domain.Reverse(recent)}, d.cfg.Commands.MaxCount)
	prompt, err := d.prompts.Build(usecase.ModeSummarize, excerpt.Messages, "")
	if err != nil {
		return d.cfg.Replies.NotEnoughContext, domain.OutcomeNotEnoughContext
	}

	d.metrics.RecordExcerpt(usecase.ModeSummarize.String(), excerpt.Len())
	return d.complete(ctx, prompt, notify, domain.OutcomeSummarized)
}

func (d *Dispatcher) answer(ctx context.Context, conversationID, query string, notify func()) (string, domain.Outcome) {
	recent, err := d.messages.Recent(ctx, conversationID, d.cfg.AnswerPoolSize)
	if err != nil {
		d.log.Error().Err(err).Str("conversation_id", conversationID).Msg("read archive failed")
		return d.cfg.Replies.Failure, domain.OutcomeStoreFailed
	}
	if len(recent) < d.minContext() {
		return d.cfg.Replies.NotEnoughContext, domain.OutcomeNotEnoughContext
	}

	keywords := d.extractor.Extract(query, d.cfg.KeywordTopN)
	window := usecase.SelectWindow(domain.Reverse(recent), keywords, d.cfg.WindowRadius)
	window = usecase.BoundWindow(window, d.cfg.MaxExcerptMessages)

	d.metrics.KeywordsPerAsk.Observe(float64(len(keywords)))
	d.log.Debug().
		Str("conversation_id", conversationID).
		Strs("keywords", keywords).
		Ints("hits", window.Hits).
		Int("excerpt", window.Len()).
		Int("pool", len(recent)).
		Msg("context selected")

	if window.IsEmpty() && d.cfg.NoMatchPolicy != NoMatchAsk {
		return d.cfg.Replies.NoRelevantContext, domain.OutcomeNoRelevantContext
	}

	prompt, err := d.prompts.Build(usecase.ModeAnswer, window.Messages, query)
	if errors.Is(err, usecase.ErrNoContext) {
		return d.cfg.Replies.NoRelevantContext, domain.OutcomeNoRelevantContext
	}
	if err != nil {
		return d.cfg.Replies.AskUsage, domain.OutcomeUsage
	}

	d.metrics.RecordExcerpt(usecase.ModeAnswer.String(), window.Len())
	return d.complete(ctx, prompt, notify, domain.OutcomeAnswered)
}

func (d *Dispatcher) complete(ctx context.Context, prompt string, notify func(), success domain.Outcome) (string, domain.Outcome) {
	notify()

	provider := d.gateway.Provider()
	start := time.Now()
	text, err := d.gateway.Complete(ctx, prompt, d.cfg.MaxOutputTokens)
	elapsed := time.Since(start)

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		d.metrics.RecordGatewayCall(provider, "error", elapsed)
		d.log.Error().Err(err).Str("provider", provider).Dur("elapsed", elapsed).Msg("completion failed")
		return d.cfg.Replies.Failure, domain.OutcomeGatewayFailed
	}

	d.metrics.RecordGatewayCall(provider, "ok", elapsed)
	return strings.TrimSpace(text), success
}

// notifier returns a callback that posts a progress notice before the LLM call
func (d *Dispatcher) notifier(ctx context.Context, conversationID, text string) func() {
	return func() {
		if !d.cfg.SendWorkingNotice || text == "" {
			return
		}
		if err := d.send(ctx, conversationID, text); err != nil {
			d.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("send notice failed")
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, conversationID, text string) error {
	if d.sender == nil {
		return errors.New("no reply sender configured")
	}
	return d.sender.SendText(ctx, conversationID, text)
}

func (d *Dispatcher) minContext() int {
	if d.cfg.MinContextMessages < 1 {
		return 1
	}
	return d.cfg.MinContextMessages
}

// OutcomeEvent is published for every handled event
type OutcomeEvent struct {
	ConversationID string         `json:"conversation_id"`
	MessageID      string         `json:"message_id,omitempty"`
	Author         string         `json:"author,omitempty"`
	Command        string         `json:"command"`
	Outcome        domain.Outcome `json:"outcome"`
	DurationMs     int64          `json:"duration_ms"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (d *Dispatcher) record(ev *domain.InboundEvent, kind domain.CommandKind, outcome domain.Outcome, elapsed time.Duration) {
	d.metrics.RecordEvent(string(outcome))

	level := zerolog.InfoLevel
	switch outcome {
	case domain.OutcomeArchived, domain.OutcomeDropped:
		level = zerolog.DebugLevel
	case domain.OutcomeArchiveFailed, domain.OutcomeStoreFailed, domain.OutcomeGatewayFailed, domain.OutcomeReplyFailed:
		level = zerolog.WarnLevel
	}
	d.log.WithLevel(level).
		Str("conversation_id", ev.ConversationID).
		Str("message_id", ev.MessageID).
		Str("command", kind.String()).
		Str("outcome", string(outcome)).
		Dur("elapsed", elapsed).
		Msg("event handled")

	if kind == domain.CommandNone {
		return
	}
	d.publish("command."+string(outcome), OutcomeEvent{
		ConversationID: ev.ConversationID,
		MessageID:      ev.MessageID,
		Author:         ev.Author,
		Command:        kind.String(),
		Outcome:        outcome,
		DurationMs:     elapsed.Milliseconds(),
		Timestamp:      time.Now(),
	})
}

func (d *Dispatcher) publish(suffix string, payload any) {
	subject := suffix
	if d.cfg.SubjectPrefix != "" {
		subject = d.cfg.SubjectPrefix + "." + suffix
	}
	if err := d.publisher.Publish(subject, payload); err != nil {
		d.log.Warn().Err(err).Str("subject", subject).Msg("publish event failed")
	}
}
