// Package tagger annotates match reports with person entities and, per
// sentence, adverbs, adjectives, entity mentions, sentiment and the
// sentence's character span.
package tagger

import (
	"context"
	"fmt"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Tagger turns a raw article into a tagged one. A record without text fails
// with an *article.MissingFieldError.
type Tagger interface {
	Tag(ctx context.Context, r article.Record) (article.Tagged, error)
}

// EntityLabels lists the entity categories reported in entity_labels.
var EntityLabels = []string{LabelPerson}

// Pipeline is the default Tagger.
type Pipeline struct {
	splitter   *Splitter
	recognizer Recognizer
	pos        *POSTagger
	classifier Classifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecognizer replaces the entity recognizer.
func WithRecognizer(r Recognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// WithClassifier replaces the sentiment classifier.
func WithClassifier(c Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// New builds a pipeline over lex. Without options it recognizes entities
// with an empty gazetteer plus capitalized-run fallback and scores
// sentiment from the lexicon.
func New(lex *Lexicon, opts ...Option) *Pipeline {
	p := &Pipeline{
		splitter:   NewSplitter(lex.Abbreviations),
		recognizer: NewGazetteer(GazetteerFile{}, true),
		pos:        NewPOSTagger(lex),
		classifier: NewLexiconScorer(lex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tag implements Tagger.
func (p *Pipeline) Tag(ctx context.Context, r article.Record) (article.Tagged, error) {
	text, err := article.Text(r)
	if err != nil {
		return article.Tagged{}, err
	}
	runes := []rune(text)

	spans := p.splitter.split(runes)
	entities := p.recognizer.Recognize(text)

	tags := make([]map[string][]string, len(spans))
	sentences := make([]string, len(spans))
	for i, sp := range spans {
		adv, adj := p.pos.Tag(Tokenize(runes, sp.StartChar, sp.EndChar))
		tags[i] = map[string][]string{
			article.TagADV: adv,
			article.TagADJ: adj,
			article.TagENT: mentionsWithin(entities, sp),
		}
		sentences[i] = string(runes[sp.StartChar:sp.EndChar])
	}

	sentiments, err := p.classifier.Classify(ctx, sentences)
	if err != nil {
		return article.Tagged{}, fmt.Errorf("classify sentiment: %w", err)
	}

	info, err := Join(tags, sentiments, spans)
	if err != nil {
		return article.Tagged{}, err
	}

	return article.Tagged{
		Record:       r,
		EntityLabels: labelEntities(entities),
		Sentences:    info,
	}, nil
}

// Join zips the per-sentence sequences. Sequences of different lengths are
// an internal error and are never padded or truncated.
func Join(tags []map[string][]string, sentiments []article.Sentiment, spans []article.Span) ([]article.SentenceInfo, error) {
	if len(tags) != len(sentiments) || len(tags) != len(spans) {
		return nil, fmt.Errorf("%w: %d tag sets, %d sentiments, %d spans",
			internalerr.ErrAlignment, len(tags), len(sentiments), len(spans))
	}
	out := make([]article.SentenceInfo, len(tags))
	for i := range tags {
		out[i] = article.SentenceInfo{Tags: tags[i], Sentiment: sentiments[i], Span: spans[i]}
	}
	return out, nil
}

// mentionsWithin returns the distinct entity texts inside sp, in order.
func mentionsWithin(entities []Entity, sp article.Span) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, e := range entities {
		if e.Start < sp.StartChar || e.End > sp.EndChar || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		out = append(out, e.Text)
	}
	return out
}

func labelEntities(entities []Entity) map[string][]string {
	labels := make(map[string][]string, len(EntityLabels))
	for _, l := range EntityLabels {
		labels[l] = []string{}
	}
	for _, e := range entities {
		if mentions, ok := labels[e.Label]; ok {
			labels[e.Label] = append(mentions, e.Text)
		}
	}
	return labels
}
