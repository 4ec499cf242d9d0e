package tagger

import (
	"context"
	"math"
	"strings"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
)

// Classifier scores the sentiment of each sentence. It must return exactly
// one result per input sentence.
type Classifier interface {
	Classify(ctx context.Context, sentences []string) ([]article.Sentiment, error)
}

// negationWindow is how many following tokens a negator flips.
const negationWindow = 3

// LexiconScorer is a word list sentiment classifier.
type LexiconScorer struct {
	positive     map[string]struct{}
	negative     map[string]struct{}
	negators     map[string]struct{}
	intensifiers map[string]float64
}

// NewLexiconScorer creates a scorer from lex.
func NewLexiconScorer(lex *Lexicon) *LexiconScorer {
	intens := make(map[string]float64, len(lex.Intensifiers))
	for k, v := range lex.Intensifiers {
		intens[strings.ToLower(k)] = v
	}
	return &LexiconScorer{
		positive:     wordSet(lex.Positive),
		negative:     wordSet(lex.Negative),
		negators:     wordSet(lex.Negators),
		intensifiers: intens,
	}
}

// Classify implements Classifier.
func (s *LexiconScorer) Classify(ctx context.Context, sentences []string) ([]article.Sentiment, error) {
	out := make([]article.Sentiment, len(sentences))
	for i, sent := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.Score(sent)
	}
	return out, nil
}

// Score rates one sentence. A sentence with no opinion words scores as
// POSITIVE with confidence 0.5.
func (s *LexiconScorer) Score(text string) article.Sentiment {
	runes := []rune(text)
	sum := 0.0
	negateLeft := 0
	boost := 1.0
	for _, t := range Tokenize(runes, 0, len(runes)) {
		w := t.Lower()
		if s.isNegator(w) {
			negateLeft = negationWindow
			continue
		}
		if f, ok := s.intensifiers[w]; ok {
			boost *= f
			continue
		}
		polarity := 0.0
		if _, ok := s.positive[w]; ok {
			polarity = 1
		} else if _, ok := s.negative[w]; ok {
			polarity = -1
		}
		if polarity != 0 {
			if negateLeft > 0 {
				polarity = -polarity
			}
			sum += polarity * boost
		}
		boost = 1
		if negateLeft > 0 {
			negateLeft--
		}
	}

	label := article.Positive
	if sum < 0 {
		label = article.Negative
	}
	return article.Sentiment{Label: label, Score: 0.5 + 0.5*math.Tanh(math.Abs(sum))}
}

func (s *LexiconScorer) isNegator(w string) bool {
	if _, ok := s.negators[w]; ok {
		return true
	}
	return strings.HasSuffix(w, "n't") || strings.HasSuffix(w, "n’t")
}
