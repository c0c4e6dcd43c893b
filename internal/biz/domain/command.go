package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// CommandKind enumerates the chat commands the assistant understands
type CommandKind int

const (
	CommandNone CommandKind = iota // ordinary conversation
	CommandSummarize
	CommandAsk
)

func (k CommandKind) String() string {
	switch k {
	case CommandSummarize:
		return "summarize"
	case CommandAsk:
		return "ask"
	default:
		return "none"
	}
}

// Command is a resolved chat command with validated arguments
type Command struct {
	Kind  CommandKind
	Count int    // summarize: number of recent messages
	Query string // ask: free-text question
}

// UsageError reports malformed command arguments
type UsageError struct {
	Kind   CommandKind
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s usage: %s", e.Kind, e.Reason)
}

// CommandSet holds the recognized command names and summarize limits
type CommandSet struct {
	Summarize    []string // e.g. "/summary"
	Ask          []string // e.g. "/ask"
	DefaultCount int      // summarize count when no argument is given
	MaxCount     int      // upper clamp for summarize count (0 = no clamp)
}

// Parse resolves chat text into a command.
// Text that does not start with a known command yields CommandNone.
func (s CommandSet) Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Kind: CommandNone}, nil
	}

	head := trimmed
	rest := ""
	if idx := strings.IndexFunc(trimmed, unicode.IsSpace); idx >= 0 {
		head = trimmed[:idx]
		rest = strings.TrimSpace(trimmed[idx:])
	}
	// Telegram addresses commands as "/cmd@BotName" in groups
	if at := strings.IndexByte(head, '@'); at > 0 {
		head = head[:at]
	}

	switch {
	case matchesAny(head, s.Summarize):
		return s.parseSummarize(rest)
	case matchesAny(head, s.Ask):
		if rest == "" {
			return Command{}, &UsageError{Kind: CommandAsk, Reason: "missing question"}
		}
		return Command{Kind: CommandAsk, Query: rest}, nil
	default:
		return Command{Kind: CommandNone}, nil
	}
}

func (s CommandSet) parseSummarize(rest string) (Command, error) {
	count := s.DefaultCount
	if fields := strings.Fields(rest); len(fields) > 0 {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return Command{}, &UsageError{Kind: CommandSummarize, Reason: fmt.Sprintf("%q is not a number", fields[0])}
		}
		if n <= 0 {
			return Command{}, &UsageError{Kind: CommandSummarize, Reason: "count must be positive"}
		}
		count = n
	}
	if s.MaxCount > 0 && count > s.MaxCount {
		count = s.MaxCount
	}
	return Command{Kind: CommandSummarize, Count: count}, nil
}

func matchesAny(head string, names []string) bool {
	for _, name := range names {
		if name != "" && strings.EqualFold(head, name) {
			return true
		}
	}
	return false
}
