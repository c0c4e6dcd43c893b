package usecase

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

// DefaultWindowRadius is the number of neighbours kept on each side of a hit
const DefaultWindowRadius = 3

// SelectWindow returns the messages within radius positions of any message
// whose lower-cased, NFC-normalized text contains a keyword.
// messages must be chronological; the result keeps that order and holds
// each message at most once. No keywords or no hits yield an empty window.
func SelectWindow(messages []domain.Message, keywords []string, radius int) domain.MessageWindow {
	if radius < 0 {
		radius = 0
	}

	lower := cases.Lower(language.Und)
	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = norm.NFC.String(lower.String(kw)); kw != "" {
			needles = append(needles, kw)
		}
	}
	if len(needles) == 0 || len(messages) == 0 {
		return domain.MessageWindow{}
	}

	var hits []int
	for i, m := range messages {
		text := norm.NFC.String(lower.String(m.Text))
		for _, n := range needles {
			if strings.Contains(text, n) {
				hits = append(hits, i)
				break
			}
		}
	}
	if len(hits) == 0 {
		return domain.MessageWindow{}
	}

	window := domain.MessageWindow{Hits: hits}
	next := 0 // first index not yet emitted
	last := len(messages) - 1
	for _, h := range hits {
		lo := max(h-radius, next)
		hi := min(h+radius, last)
		for i := lo; i <= hi; i++ {
			window.Messages = append(window.Messages, messages[i])
		}
		next = max(next, hi+1)
	}
	return window
}

// BoundWindow keeps only the most recent ceiling messages of a window.
// A ceiling of zero or less leaves the window unchanged.
func BoundWindow(window domain.MessageWindow, ceiling int) domain.MessageWindow {
	if ceiling <= 0 || len(window.Messages) <= ceiling {
		return window
	}
	drop := len(window.Messages) - ceiling
	bounded := make([]domain.Message, ceiling)
	copy(bounded, window.Messages[drop:])
	return domain.MessageWindow{Messages: bounded, Hits: window.Hits}
}
