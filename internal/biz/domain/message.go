package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup   ChatType = "group"
	ChatTypePrivate ChatType = "private"
)

// Message represents an archived chat message
// Messages are immutable once stored; other components only receive copies.
type Message struct {
	ID             string
	ConversationID string
	Author         string
	Text           string
	Timestamp      time.Time
}

// NewMessage creates a message with a fresh ID
func NewMessage(conversationID, author, text string, ts time.Time) *Message {
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Author:         author,
		Text:           text,
		Timestamp:      ts,
	}
}

// MessageWindow is an excerpt of a chronological message list.
// Messages keep their original relative order and appear at most once.
type MessageWindow struct {
	Messages []Message
	Hits     []int // source indices whose text matched a keyword
}

// Len returns the number of messages in the window
func (w MessageWindow) Len() int {
	return len(w.Messages)
}

// IsEmpty reports whether the window holds no messages
func (w MessageWindow) IsEmpty() bool {
	return len(w.Messages) == 0
}

// Reverse returns a reversed copy of messages.
// Stores return recency-descending slices; the pipeline works chronologically.
func Reverse(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}
