package repo

import (
	"context"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

// MessageRepo is the message archive interface
// Messages are append-only; nothing is updated or deleted.
type MessageRepo interface {
	// Append stores a message
	Append(ctx context.Context, msg *domain.Message) error

	// Recent returns up to limit messages, newest first.
	// Messages with equal timestamps come back in reverse receipt order.
	// An empty conversationID reads across all conversations.
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	Close() error
}

// ReplySender posts plain text back into a conversation
type ReplySender interface {
	SendText(ctx context.Context, conversationID, text string) error
}
