package server

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/infra/feishu"
	"github.com/DevRickLin/chatrecall/internal/metrics"
)

// FeishuServer feeds Feishu websocket events into the dispatcher
type FeishuServer struct {
	client *feishu.Client
	intake *intake
	log    zerolog.Logger
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(client *feishu.Client, handler EventHandler, m *metrics.Metrics, log zerolog.Logger) *FeishuServer {
	return &FeishuServer{
		client: client,
		intake: newIntake("feishu", handler, m, log),
		log:    log,
	}
}

// Run connects to Feishu and blocks until ctx is done.
// The websocket client may keep running after cancellation; it stops with the process.
func (s *FeishuServer) Run(ctx context.Context) error {
	s.client.OnEvent(s.handleEvent)
	s.log.Info().Msg("feishu transport started")

	errCh := make(chan error, 1)
	go func() { errCh <- s.client.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *FeishuServer) handleEvent(ctx context.Context, ev *domain.InboundEvent) {
	s.intake.dispatch(ctx, ev)
}
