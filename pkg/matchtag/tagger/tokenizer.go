package tagger

import (
	"strings"
	"unicode"
)

// Token is a word with its [Start, End) rune offsets into the article text.
type Token struct {
	Text  string
	Start int
	End   int
}

// Lower returns the lowercased token text.
func (t Token) Lower() string { return strings.ToLower(t.Text) }

// Tokenize splits runes[from:to] into word tokens. Hyphens and apostrophes
// inside a word are kept ("Alexander-Arnold", "O'Shea"); everything else
// that is not a letter or digit separates tokens.
func Tokenize(runes []rune, from, to int) []Token {
	var tokens []Token
	start := -1
	for i := from; i < to; i++ {
		r := runes[i]
		if isWordRune(r) || (start >= 0 && isJoiner(r) && i+1 < to && isWordRune(runes[i+1])) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: string(runes[start:i]), Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: string(runes[start:to]), Start: start, End: to})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isJoiner(r rune) bool {
	return r == '-' || r == '\'' || r == '’'
}

// lowerRunes lowercases rune by rune so offsets stay aligned with the input.
func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}
