package domain

import (
	"strings"
	"time"
)

// InboundEvent is a transport-neutral chat event
type InboundEvent struct {
	ConversationID string
	ChatType       ChatType
	MessageID      string // transport message ID, used for de-duplication
	Author         string
	Text           string
	Timestamp      time.Time
}

// IsGroup checks if the event came from a group chat
func (e *InboundEvent) IsGroup() bool {
	return e.ChatType == ChatTypeGroup
}

// IsBlank reports whether the event carries no text worth storing
func (e *InboundEvent) IsBlank() bool {
	return strings.TrimSpace(e.Text) == ""
}

// ToMessage converts the event into an archivable message
func (e *InboundEvent) ToMessage() *Message {
	return NewMessage(e.ConversationID, e.Author, e.Text, e.Timestamp)
}

// Outcome describes how an inbound event was handled
type Outcome string

const (
	OutcomeArchived          Outcome = "archived"
	OutcomeDropped           Outcome = "dropped"
	OutcomeArchiveFailed     Outcome = "archive_failed"
	OutcomeStoreFailed       Outcome = "store_failed"
	OutcomeUsage             Outcome = "usage"
	OutcomeNotEnoughContext  Outcome = "not_enough_context"
	OutcomeNoRelevantContext Outcome = "no_relevant_context"
	OutcomeSummarized        Outcome = "summarized"
	OutcomeAnswered          Outcome = "answered"
	OutcomeGatewayFailed     Outcome = "gateway_failed"
	OutcomeReplyFailed       Outcome = "reply_failed"
)
