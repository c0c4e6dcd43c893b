package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/metrics"
)

// seenTTL is how long a transport message ID is remembered for de-duplication
const seenTTL = 5 * time.Minute

// EventHandler handles one transport-neutral chat event
type EventHandler interface {
	Handle(ctx context.Context, ev *domain.InboundEvent) domain.Outcome
}

// intake de-duplicates inbound events and forwards them to the handler
type intake struct {
	transport string
	handler   EventHandler
	metrics   *metrics.Metrics
	log       zerolog.Logger

	seenMu sync.Mutex
	seen   map[string]time.Time // message ID -> first seen
	now    func() time.Time
}

func newIntake(transport string, handler EventHandler, m *metrics.Metrics, log zerolog.Logger) *intake {
	if m == nil {
		m = metrics.New()
	}
	return &intake{
		transport: transport,
		handler:   handler,
		metrics:   m,
		log:       log,
		seen:      make(map[string]time.Time),
		now:       time.Now,
	}
}

// dispatch forwards ev unless its message ID was already handled
func (in *intake) dispatch(ctx context.Context, ev *domain.InboundEvent) {
	if ev.MessageID != "" && !in.markSeen(ev.MessageID) {
		in.log.Debug().Str("message_id", ev.MessageID).Msg("duplicate message ignored")
		in.metrics.RecordTransportUpdate(in.transport, "duplicate")
		return
	}
	in.metrics.RecordTransportUpdate(in.transport, "accepted")
	in.handler.Handle(ctx, ev)
}

// skip counts an update that carried nothing to handle
func (in *intake) skip() {
	in.metrics.RecordTransportUpdate(in.transport, "skipped")
}

// markSeen records msgID and reports whether it was new.
// Expired entries are swept on every call.
func (in *intake) markSeen(msgID string) bool {
	in.seenMu.Lock()
	defer in.seenMu.Unlock()

	now := in.now()
	cutoff := now.Add(-seenTTL)
	for id, ts := range in.seen {
		if ts.Before(cutoff) {
			delete(in.seen, id)
		}
	}

	if _, exists := in.seen[msgID]; exists {
		return false
	}
	in.seen[msgID] = now
	return true
}
