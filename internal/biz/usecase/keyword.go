package usecase

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedScript is returned by a Scorer that cannot rank a candidate
var ErrUnsupportedScript = errors.New("unsupported script")

// DefaultTopN is the default keyword set size
const DefaultTopN = 5

// minTokenRunes drops single-letter tokens such as elided articles ("l'", "d'")
const minTokenRunes = 2

// Candidate is a distinct non-stop-word term found in a query
type Candidate struct {
	Term        string // lower-cased
	Count       int    // occurrences in the query
	FirstIndex  int    // position of the first occurrence among candidates
	Capitalized bool   // appeared capitalized somewhere other than a sentence start
}

// Scorer ranks candidates by salience.
// Candidates arrive in first-occurrence order; ties must keep that order.
type Scorer interface {
	Rank(candidates []Candidate) ([]string, error)
}

// LexicalScorer ranks by term frequency weighted by term length,
// boosting terms that look like proper nouns.
type LexicalScorer struct{}

// Rank implements Scorer
func (LexicalScorer) Rank(candidates []Candidate) ([]string, error) {
	type scored struct {
		term  string
		score float64
	}

	items := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if !isLatin(c.Term) {
			return nil, fmt.Errorf("rank %q: %w", c.Term, ErrUnsupportedScript)
		}
		score := float64(c.Count) * (1 + math.Log(float64(utf8.RuneCountInString(c.Term))))
		if c.Capitalized {
			score *= 1.5
		}
		items = append(items, scored{term: c.Term, score: score})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	terms := make([]string, len(items))
	for i, it := range items {
		terms[i] = it.term
	}
	return terms, nil
}

func isLatin(term string) bool {
	for _, r := range term {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}

// KeywordExtractor turns a free-form question into an ordered keyword set
type KeywordExtractor struct {
	stopwords map[string]struct{} // exact spelling
	folded    map[string]struct{} // unaccented spelling
	scorer    Scorer
}

// NewKeywordExtractor creates an extractor with stop-words for the given languages
func NewKeywordExtractor(languages []string, scorer Scorer) (*KeywordExtractor, error) {
	if scorer == nil {
		scorer = LexicalScorer{}
	}

	stop := make(map[string]struct{})
	folded := make(map[string]struct{})
	for _, lang := range languages {
		words, ok := stopwordLists[strings.ToLower(strings.TrimSpace(lang))]
		if !ok {
			return nil, fmt.Errorf("no stop-word list for language %q", lang)
		}
		for _, w := range strings.Fields(words) {
			exactOnly := strings.HasPrefix(w, "=")
			w = norm.NFC.String(strings.TrimPrefix(w, "="))
			stop[w] = struct{}{}
			if !exactOnly {
				folded[foldAccents(w)] = struct{}{}
			}
		}
	}

	return &KeywordExtractor{stopwords: stop, folded: folded, scorer: scorer}, nil
}

// Extract returns at most topN lower-cased keywords, most salient first.
// It never fails: if the scorer cannot rank the query, the first topN
// distinct candidates are returned in query order.
func (e *KeywordExtractor) Extract(query string, topN int) []string {
	if topN <= 0 || strings.TrimSpace(query) == "" {
		return []string{}
	}

	candidates := e.candidates(query)
	if len(candidates) == 0 {
		return []string{}
	}

	ranked, err := e.scorer.Rank(candidates)
	if err != nil {
		ranked = make([]string, len(candidates))
		for i, c := range candidates {
			ranked[i] = c.Term
		}
	}

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func (e *KeywordExtractor) candidates(query string) []Candidate {
	lower := cases.Lower(language.Und)

	var out []Candidate
	index := make(map[string]int)
	for _, tok := range tokenize(query) {
		term := norm.NFC.String(lower.String(tok.text))
		if utf8.RuneCountInString(term) < minTokenRunes {
			continue
		}
		if e.isStopword(term) {
			continue
		}

		capitalized := !tok.sentenceStart && startsUpper(tok.text)
		if i, seen := index[term]; seen {
			out[i].Count++
			out[i].Capitalized = out[i].Capitalized || capitalized
			continue
		}
		index[term] = len(out)
		out = append(out, Candidate{
			Term:        term,
			Count:       1,
			FirstIndex:  len(out),
			Capitalized: capitalized,
		})
	}
	return out
}

func (e *KeywordExtractor) isStopword(term string) bool {
	if _, ok := e.stopwords[term]; ok {
		return true
	}
	_, ok := e.folded[foldAccents(term)]
	return ok
}

type rawToken struct {
	text          string
	sentenceStart bool
}

// tokenize splits on every rune that is not a letter, digit or combining mark
func tokenize(s string) []rawToken {
	var tokens []rawToken
	start := -1
	sentenceStart := true

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, rawToken{text: s[start:end], sentenceStart: sentenceStart})
			sentenceStart = false
			start = -1
		}
	}

	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			sentenceStart = true
		}
	}
	flush(len(s))
	return tokens
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// foldAccents strips diacritics so "què" and "que" share a stop-word entry
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
