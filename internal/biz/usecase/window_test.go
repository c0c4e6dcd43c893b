package usecase

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

func makeMessages(n int, texts map[int]string) []domain.Message {
	msgs := make([]domain.Message, n)
	for i := range msgs {
		text := fmt.Sprintf("message %d", i)
		if t, ok := texts[i]; ok {
			text = t
		}
		msgs[i] = domain.Message{ID: fmt.Sprint(i), Author: "user", Text: text}
	}
	return msgs
}

func windowIDs(w domain.MessageWindow) []string {
	ids := make([]string, len(w.Messages))
	for i, m := range w.Messages {
		ids[i] = m.ID
	}
	return ids
}

func expectIDs(t *testing.T, w domain.MessageWindow, from, to int) {
	t.Helper()
	var want []string
	for i := from; i <= to; i++ {
		want = append(want, fmt.Sprint(i))
	}
	got := windowIDs(w)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected indices %v, got %v", want, got)
	}
}

func TestSelectWindow_SingleHit(t *testing.T) {
	msgs := makeMessages(20, map[int]string{10: "the exam is on Monday"})
	w := SelectWindow(msgs, []string{"exam"}, 2)

	if w.Len() != 5 {
		t.Fatalf("Expected 5 messages, got %d", w.Len())
	}
	expectIDs(t, w, 8, 12)
	if len(w.Hits) != 1 || w.Hits[0] != 10 {
		t.Errorf("Expected hits [10], got %v", w.Hits)
	}
}

func TestSelectWindow_OverlappingHitsMerge(t *testing.T) {
	msgs := makeMessages(20, map[int]string{3: "exam room?", 5: "exam starts at 9"})
	w := SelectWindow(msgs, []string{"exam"}, 2)
	expectIDs(t, w, 1, 7)
}

func TestSelectWindow_EmptyKeywords(t *testing.T) {
	msgs := makeMessages(20, nil)
	for _, kws := range [][]string{nil, {}, {""}} {
		if w := SelectWindow(msgs, kws, 3); !w.IsEmpty() {
			t.Errorf("Expected empty window for keywords %q, got %d messages", kws, w.Len())
		}
	}
}

func TestSelectWindow_NoHits(t *testing.T) {
	msgs := makeMessages(20, nil)
	if w := SelectWindow(msgs, []string{"exam"}, 3); !w.IsEmpty() {
		t.Errorf("Expected empty window, got %d messages", w.Len())
	}
}

func TestSelectWindow_NoMessages(t *testing.T) {
	if w := SelectWindow(nil, []string{"exam"}, 3); !w.IsEmpty() {
		t.Errorf("Expected empty window, got %d messages", w.Len())
	}
}

func TestSelectWindow_ClampsAtEdges(t *testing.T) {
	msgs := makeMessages(20, map[int]string{0: "exam", 19: "exam"})
	w := SelectWindow(msgs, []string{"exam"}, 3)
	got := strings.Join(windowIDs(w), ",")
	if got != "0,1,2,3,16,17,18,19" {
		t.Errorf("Unexpected window %s", got)
	}
}

func TestSelectWindow_CaseInsensitive(t *testing.T) {
	msgs := makeMessages(5, map[int]string{2: "EXAM moved to Friday"})
	w := SelectWindow(msgs, []string{"exam"}, 0)
	expectIDs(t, w, 2, 2)
}

func TestSelectWindow_SubstringMatch(t *testing.T) {
	msgs := makeMessages(5, map[int]string{1: "the examination board"})
	w := SelectWindow(msgs, []string{"exam"}, 0)
	expectIDs(t, w, 1, 1)
}

func TestSelectWindow_MultipleKeywordsSameMessage(t *testing.T) {
	msgs := makeMessages(10, map[int]string{4: "exam room changed"})
	w := SelectWindow(msgs, []string{"exam", "room"}, 1)
	expectIDs(t, w, 3, 5)
	if len(w.Hits) != 1 {
		t.Errorf("Expected one hit, got %v", w.Hits)
	}
}

func TestSelectWindow_NegativeRadius(t *testing.T) {
	msgs := makeMessages(10, map[int]string{4: "exam"})
	w := SelectWindow(msgs, []string{"exam"}, -2)
	expectIDs(t, w, 4, 4)
}

// reference implementation: index-set union
func referenceWindow(msgs []domain.Message, kws []string, r int) []string {
	include := make(map[int]bool)
	for i, m := range msgs {
		text := strings.ToLower(m.Text)
		for _, kw := range kws {
			if kw != "" && strings.Contains(text, kw) {
				for j := i - r; j <= i+r; j++ {
					if j >= 0 && j < len(msgs) {
						include[j] = true
					}
				}
				break
			}
		}
	}
	var ids []string
	for i := range msgs {
		if include[i] {
			ids = append(ids, msgs[i].ID)
		}
	}
	return ids
}

func TestSelectWindow_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"exam", "lunch", "deadline", "hello", "train", "ok"}

	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		texts := make(map[int]string)
		for i := 0; i < n; i++ {
			texts[i] = words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]
		}
		msgs := makeMessages(n, texts)
		kws := []string{words[rng.Intn(len(words))]}
		if rng.Intn(2) == 0 {
			kws = append(kws, words[rng.Intn(len(words))])
		}
		r := rng.Intn(5)

		w := SelectWindow(msgs, kws, r)
		got := strings.Join(windowIDs(w), ",")
		want := strings.Join(referenceWindow(msgs, kws, r), ",")
		if got != want {
			t.Fatalf("Round %d (r=%d, kws=%v): expected %s, got %s", round, r, kws, want, got)
		}

		// order preserved and no duplicates
		seen := make(map[string]bool)
		prev := -1
		for _, m := range w.Messages {
			if seen[m.ID] {
				t.Fatalf("Round %d: duplicate message %s", round, m.ID)
			}
			seen[m.ID] = true
			var idx int
			fmt.Sscan(m.ID, &idx)
			if idx <= prev {
				t.Fatalf("Round %d: order broken at %s", round, m.ID)
			}
			prev = idx
		}

		if again := SelectWindow(msgs, kws, r); strings.Join(windowIDs(again), ",") != got {
			t.Fatalf("Round %d: non-deterministic result", round)
		}
	}
}

func TestBoundWindow(t *testing.T) {
	msgs := makeMessages(10, nil)
	w := domain.MessageWindow{Messages: msgs, Hits: []int{5}}

	bounded := BoundWindow(w, 4)
	expectIDs(t, bounded, 6, 9)
	if len(bounded.Hits) != 1 {
		t.Errorf("Expected hits to be carried over, got %v", bounded.Hits)
	}

	if got := BoundWindow(w, 0); got.Len() != 10 {
		t.Errorf("Expected unbounded window, got %d", got.Len())
	}
	if got := BoundWindow(w, 20); got.Len() != 10 {
		t.Errorf("Expected window unchanged, got %d", got.Len())
	}
}

func TestSelectWindow_MatchesAcrossNormalizationForms(t *testing.T) {
	// decomposed message text, composed keyword
	msgs := makeMessages(10, map[int]string{4: "Els exa\u0300mens de juny"})
	w := SelectWindow(msgs, []string{"ex\u00e0mens"}, 0)
	expectIDs(t, w, 4, 4)

	// composed message text, decomposed keyword
	msgs = makeMessages(10, map[int]string{6: "Els ex\u00e0mens de juny"})
	w = SelectWindow(msgs, []string{"exa\u0300mens"}, 0)
	expectIDs(t, w, 6, 6)
}
