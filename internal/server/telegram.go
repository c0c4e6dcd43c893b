package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/infra/telegram"
	"github.com/DevRickLin/chatrecall/internal/metrics"
)

// WebhookSecretHeader carries the secret configured with setWebhook
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxPollBackoff = time.Minute

// TelegramConfig configures the Telegram transport
type TelegramConfig struct {
	PollTimeout   int // seconds, long-poll wait per getUpdates call
	RetryDelay    time.Duration
	WebhookSecret string
}

// TelegramServer feeds Telegram updates into the dispatcher, either by
// long polling or through webhook deliveries
type TelegramServer struct {
	client *telegram.Client
	cfg    TelegramConfig
	intake *intake
	log    zerolog.Logger

	pending sync.WaitGroup // webhook updates still being handled
}

// NewTelegramServer creates a new Telegram server
func NewTelegramServer(client *telegram.Client, cfg TelegramConfig, handler EventHandler, m *metrics.Metrics, log zerolog.Logger) *TelegramServer {
	if cfg.PollTimeout < 0 {
		cfg.PollTimeout = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &TelegramServer{
		client: client,
		cfg:    cfg,
		intake: newIntake("telegram", handler, m, log),
		log:    log,
	}
}

// Poll long-polls getUpdates until ctx is done. Updates within a batch
// are handled sequentially, in the order Telegram delivered them.
func (s *TelegramServer) Poll(ctx context.Context) error {
	var offset int64
	backoff := s.cfg.RetryDelay

	s.log.Info().Int("poll_timeout", s.cfg.PollTimeout).Msg("telegram polling started")
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := s.client.GetUpdates(ctx, offset, s.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.intake.metrics.RecordTransportUpdate("telegram", "poll_error")
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = s.cfg.RetryDelay

		for i := range updates {
			if next := updates[i].UpdateID + 1; next > offset {
				offset = next
			}
			s.HandleUpdate(ctx, &updates[i])
		}
	}
}

// HandleUpdate converts one update and dispatches it
func (s *TelegramServer) HandleUpdate(ctx context.Context, u *telegram.Update) {
	ev, ok := u.ToEvent()
	if !ok {
		s.intake.skip()
		return
	}
	s.intake.dispatch(ctx, ev)
}

// ServeWebhook accepts a webhook delivery. The update is acknowledged
// immediately and handled in the background.
func (s *TelegramServer) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookSecret != "" {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) != 1 {
			s.intake.metrics.RecordTransportUpdate("telegram", "unauthorized")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	u, err := telegram.DecodeUpdate(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.intake.metrics.RecordTransportUpdate("telegram", "invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.HandleUpdate(context.WithoutCancel(r.Context()), u)
	}()
	w.WriteHeader(http.StatusOK)
}

// Wait blocks until every accepted webhook update has been handled.
// Call it once no more deliveries can arrive.
func (s *TelegramServer) Wait() {
	s.pending.Wait()
}
