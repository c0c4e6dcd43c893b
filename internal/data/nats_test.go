package data

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNATSPublisher_BuffersWhileDisconnected(t *testing.T) {
	// Nothing listens on port 1; the client stays in reconnecting state.
	p, err := NewNATSPublisher("nats://127.0.0.1:1", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("Expected lazy connection, got %v", err)
	}
	defer p.Close()

	if err := p.Publish("chatrecall.test", map[string]string{"outcome": "archived"}); err != nil {
		t.Errorf("Expected publish to be buffered, got %v", err)
	}
	if err := p.Publish("chatrecall.test", make(chan int)); err == nil {
		t.Error("Expected marshal error")
	}
}
