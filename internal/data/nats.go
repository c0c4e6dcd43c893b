package data

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/repo"
)

// natsPublisher fans out pipeline events as JSON over NATS
type natsPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url; the connection keeps retrying in the background
func NewNATSPublisher(url, token string, log zerolog.Logger) (repo.EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("chatrecall"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &natsPublisher{conn: nc}, nil
}

func (p *natsPublisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *natsPublisher) Close() {
	_ = p.conn.Drain()
}
