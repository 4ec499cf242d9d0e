package tagger

import (
	"strings"
	"unicode"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
)

// POSTagger picks out adverbs and adjectives from word lists, with suffix
// rules for lowercase words the lists do not cover.
type POSTagger struct {
	adverbs    map[string]struct{}
	adjectives map[string]struct{}
	notAdverbs map[string]struct{}
}

var adjectiveSuffixes = []string{"ful", "less", "ous", "ive", "able", "ible", "ish"}

// NewPOSTagger creates a tagger from lex.
func NewPOSTagger(lex *Lexicon) *POSTagger {
	return &POSTagger{
		adverbs:    wordSet(lex.Adverbs),
		adjectives: wordSet(lex.Adjectives),
		notAdverbs: wordSet(lex.NotAdverbs),
	}
}

// Tag returns the adverbs and adjectives among tokens, in order, as they
// appear in the text.
func (p *POSTagger) Tag(tokens []Token) (adv, adj []string) {
	adv, adj = []string{}, []string{}
	for _, t := range tokens {
		switch p.classify(t) {
		case article.TagADV:
			adv = append(adv, t.Text)
		case article.TagADJ:
			adj = append(adj, t.Text)
		}
	}
	return adv, adj
}

func (p *POSTagger) classify(t Token) string {
	w := t.Lower()
	if _, ok := p.adjectives[w]; ok {
		return article.TagADJ
	}
	if _, ok := p.adverbs[w]; ok {
		return article.TagADV
	}
	// Suffix rules only apply to lowercase words so names like Kelly or
	// Olive are left alone.
	if first := []rune(t.Text)[0]; !unicode.IsLower(first) {
		return ""
	}
	if _, ok := p.notAdverbs[w]; !ok && len(w) >= 5 && strings.HasSuffix(w, "ly") {
		return article.TagADV
	}
	if len(w) >= 6 {
		for _, suf := range adjectiveSuffixes {
			if strings.HasSuffix(w, suf) {
				return article.TagADJ
			}
		}
	}
	return ""
}
