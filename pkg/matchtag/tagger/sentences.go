package tagger

import (
	"strings"
	"unicode"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
)

// Splitter finds sentence boundaries with a rule based scan: a sentence
// ends at terminal punctuation followed by whitespace, unless the word
// before a period is a known abbreviation or a single initial, or the
// next sentence would start in lowercase. Blank lines always end a
// sentence.
type Splitter struct {
	abbreviations map[string]struct{}
}

// NewSplitter creates a splitter that does not break after the given
// abbreviations (case-insensitive, without the trailing period).
func NewSplitter(abbreviations []string) *Splitter {
	abbr := make(map[string]struct{}, len(abbreviations))
	for _, a := range abbreviations {
		abbr[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &Splitter{abbreviations: abbr}
}

// Split returns the sentence spans of text in order, as rune offsets.
func (s *Splitter) Split(text string) []article.Span {
	return s.split([]rune(text))
}

func (s *Splitter) split(r []rune) []article.Span {
	var spans []article.Span
	n := len(r)
	start := -1

	emit := func(end int) {
		for end > start && unicode.IsSpace(r[end-1]) {
			end--
		}
		if end > start {
			spans = append(spans, article.Span{StartChar: start, EndChar: end})
		}
		start = -1
	}

	for i := 0; i < n; i++ {
		c := r[i]
		if start < 0 {
			if unicode.IsSpace(c) {
				continue
			}
			start = i
		}
		if c == '\n' && i+1 < n && r[i+1] == '\n' {
			emit(i)
			continue
		}
		if !isTerminal(c) {
			continue
		}

		j := i + 1
		for j < n && isTerminal(r[j]) {
			j++
		}
		for j < n && isCloser(r[j]) {
			j++
		}
		switch {
		case j < n && !unicode.IsSpace(r[j]):
			// "2.5", "e.g.x", "Spurs.com"
		case c == '.' && j == i+1 && s.abbreviationBefore(r, start, i):
		case startsLower(r, j):
		default:
			emit(j)
		}
		i = j - 1
	}
	if start >= 0 {
		emit(n)
	}
	return spans
}

func (s *Splitter) abbreviationBefore(r []rune, start, dot int) bool {
	k := dot
	for k > start && unicode.IsLetter(r[k-1]) {
		k--
	}
	word := r[k:dot]
	if len(word) == 0 {
		return false
	}
	if len(word) == 1 && unicode.IsUpper(word[0]) {
		return true
	}
	_, ok := s.abbreviations[strings.ToLower(string(word))]
	return ok
}

func startsLower(r []rune, from int) bool {
	for k := from; k < len(r); k++ {
		if unicode.IsSpace(r[k]) {
			continue
		}
		return unicode.IsLower(r[k])
	}
	return false
}

func isTerminal(c rune) bool {
	return c == '.' || c == '!' || c == '?' || c == '…'
}

func isCloser(c rune) bool {
	switch c {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
