package tagger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

func defaultLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lex, err := DefaultLexicon()
	require.NoError(t, err)
	return lex
}

func TestSplitterSpans(t *testing.T) {
	s := NewSplitter(nil)
	text := "Salah scored early. Liverpool won 2-0!\n\nKlopp was pleased."

	spans := s.Split(text)
	assert.Equal(t, []article.Span{
		{StartChar: 0, EndChar: 19},
		{StartChar: 20, EndChar: 38},
		{StartChar: 40, EndChar: 58},
	}, spans)
}

func TestSplitterUsesRuneOffsets(t *testing.T) {
	spans := NewSplitter(nil).Split("Agüero scored. Señor.")
	assert.Equal(t, []article.Span{
		{StartChar: 0, EndChar: 14},
		{StartChar: 15, EndChar: 21},
	}, spans)
}

func TestSplitterAbbreviationsAndNumbers(t *testing.T) {
	s := NewSplitter([]string{"Mr."})
	text := "Mr. Smith arrived. He left at 2.5 p.m. today."

	spans := s.Split(text)
	require.Len(t, spans, 2)
	assert.Equal(t, article.Span{StartChar: 0, EndChar: 18}, spans[0])
	assert.Equal(t, len([]rune(text)), spans[1].EndChar)
}

func TestSplitterInitialsAndQuotes(t *testing.T) {
	spans := NewSplitter(nil).Split(`J. Smith said: "We won." Then he left.`)
	require.Len(t, spans, 2)
	assert.Equal(t, 24, spans[0].EndChar)
}

func TestSplitterBlankText(t *testing.T) {
	assert.Empty(t, NewSplitter(nil).Split("   \n\n "))
}

func TestTokenizeKeepsInnerJoiners(t *testing.T) {
	runes := []rune("Alexander-Arnold's cross, O'Shea - header.")
	var words []string
	for _, tok := range Tokenize(runes, 0, len(runes)) {
		words = append(words, tok.Text)
	}
	assert.Equal(t, []string{"Alexander-Arnold's", "cross", "O'Shea", "header"}, words)
}

func TestGazetteerRecognize(t *testing.T) {
	g := NewGazetteer(GazetteerFile{
		Persons: []GazetteerEntry{{Name: "Mohamed Salah", Aliases: []string{"Salah"}}},
		Teams:   []GazetteerEntry{{Name: "Liverpool"}},
	}, true)

	ents := g.Recognize("Mohamed Salah scored twice before Salah turned provider for Diogo Jota at Liverpool.")

	var got []string
	for _, e := range ents {
		got = append(got, e.Label+":"+e.Text)
	}
	assert.Equal(t, []string{
		"PERSON:Mohamed Salah",
		"PERSON:Salah",
		"PERSON:Diogo Jota",
		"ORG:Liverpool",
	}, got)
	assert.Equal(t, "Mohamed Salah", ents[1].Canonical)
	assert.Equal(t, 34, ents[1].Start)
}

func TestGazetteerWordBoundaries(t *testing.T) {
	g := NewGazetteer(GazetteerFile{Persons: []GazetteerEntry{{Name: "Kane"}}}, false)
	assert.Empty(t, g.Recognize("The hurricane hit."))
	assert.Len(t, g.Recognize("kane and KANE"), 2)
}

func TestGazetteerWithoutEntries(t *testing.T) {
	g := NewGazetteer(GazetteerFile{}, false)
	assert.Empty(t, g.Recognize("Harry Kane scored."))
}

func TestPOSTagger(t *testing.T) {
	p := NewPOSTagger(defaultLexicon(t))
	runes := []rune("He ran quickly and scored a wonderful, decisive goal")

	adv, adj := p.Tag(Tokenize(runes, 0, len(runes)))
	assert.Equal(t, []string{"quickly"}, adv)
	assert.Equal(t, []string{"wonderful", "decisive"}, adj)
}

func TestPOSTaggerLeavesNamesAlone(t *testing.T) {
	p := NewPOSTagger(defaultLexicon(t))
	runes := []rune("Kelly passed to Olive")

	adv, adj := p.Tag(Tokenize(runes, 0, len(runes)))
	assert.Empty(t, adv)
	assert.Empty(t, adj)
}

func TestLexiconScorer(t *testing.T) {
	s := NewLexiconScorer(defaultLexicon(t))

	good := s.Score("A brilliant goal.")
	assert.Equal(t, article.Positive, good.Label)
	assert.Greater(t, good.Score, 0.5)

	negated := s.Score("Not a good performance.")
	assert.Equal(t, article.Negative, negated.Label)

	neutral := s.Score("The match.")
	assert.Equal(t, article.Sentiment{Label: article.Positive, Score: 0.5}, neutral)

	bad := s.Score("It was bad.")
	veryBad := s.Score("It was very bad.")
	assert.Equal(t, article.Negative, veryBad.Label)
	assert.Greater(t, veryBad.Score, bad.Score)

	for _, sent := range []article.Sentiment{good, negated, neutral, bad, veryBad} {
		assert.GreaterOrEqual(t, sent.Score, 0.0)
		assert.LessOrEqual(t, sent.Score, 1.0)
	}
}

func TestPipelineTagsGoodGame(t *testing.T) {
	p := New(defaultLexicon(t))
	r := article.NewRecord("text", "Good game.")

	tagged, err := p.Tag(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{LabelPerson: {}}, tagged.EntityLabels)
	require.Len(t, tagged.Sentences, 1)
	s := tagged.Sentences[0]
	assert.Equal(t, article.Span{StartChar: 0, EndChar: 10}, s.Span)
	assert.Equal(t, []string{"Good"}, s.Tags[article.TagADJ])
	assert.Empty(t, s.Tags[article.TagADV])
	assert.Empty(t, s.Tags[article.TagENT])
	assert.Equal(t, article.Positive, s.Sentiment.Label)
	assert.Equal(t, "Good game.", tagged.String(article.KeyText))
}

func TestPipelineEntities(t *testing.T) {
	g := NewGazetteer(GazetteerFile{Persons: []GazetteerEntry{{Name: "Salah"}}}, false)
	p := New(defaultLexicon(t), WithRecognizer(g))

	tagged, err := p.Tag(context.Background(), article.NewRecord("text", "Salah scored. Salah and Salah celebrated."))
	require.NoError(t, err)

	assert.Equal(t, []string{"Salah", "Salah", "Salah"}, tagged.EntityLabels[LabelPerson])
	require.Len(t, tagged.Sentences, 2)
	assert.Equal(t, []string{"Salah"}, tagged.Sentences[0].Tags[article.TagENT])
	assert.Equal(t, []string{"Salah"}, tagged.Sentences[1].Tags[article.TagENT])
}

func TestPipelineMissingText(t *testing.T) {
	p := New(defaultLexicon(t))

	for _, r := range []article.Record{
		article.NewRecord(),
		article.NewRecord("text", ""),
		article.NewRecord("headline", "No body"),
	} {
		_, err := p.Tag(context.Background(), r)
		require.Error(t, err)
		assert.ErrorIs(t, err, internalerr.ErrMissingField)

		var mf *article.MissingFieldError
		require.True(t, errors.As(err, &mf))
		assert.Equal(t, article.KeyText, mf.Field)
	}
}

type shortClassifier struct{}

func (shortClassifier) Classify(_ context.Context, sentences []string) ([]article.Sentiment, error) {
	return make([]article.Sentiment, len(sentences)-1), nil
}

func TestPipelineAlignmentIsFatal(t *testing.T) {
	p := New(defaultLexicon(t), WithClassifier(shortClassifier{}))

	_, err := p.Tag(context.Background(), article.NewRecord("text", "One. Two."))
	assert.ErrorIs(t, err, internalerr.ErrAlignment)
}

func TestJoin(t *testing.T) {
	tags := []map[string][]string{{}, {}}
	sents := []article.Sentiment{{Label: article.Positive, Score: 0.9}, {Label: article.Negative, Score: 0.6}}
	spans := []article.Span{{StartChar: 0, EndChar: 4}, {StartChar: 5, EndChar: 9}}

	info, err := Join(tags, sents, spans)
	require.NoError(t, err)
	require.Len(t, info, 2)
	assert.Equal(t, spans[1], info[1].Span)
	assert.Equal(t, sents[1], info[1].Sentiment)

	_, err = Join(tags, sents[:1], spans)
	assert.ErrorIs(t, err, internalerr.ErrAlignment)
}

func TestLoadLexiconExtendsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("positive: [gegenpress]\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	s := NewLexiconScorer(lex)
	assert.Equal(t, article.Positive, s.Score("Gegenpress").Label)
	assert.Contains(t, lex.Positive, "brilliant")
}

func TestLoadGazetteer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gazetteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
persons:
  - name: Harry Kane
    aliases: [Kane]
teams:
  - name: Tottenham Hotspur
    aliases: [Spurs]
`), 0o644))

	g, err := LoadGazetteer(path)
	require.NoError(t, err)
	ents := g.Recognize("Kane scored for Spurs.")
	require.Len(t, ents, 2)
	assert.Equal(t, "Harry Kane", ents[0].Canonical)
	assert.Equal(t, LabelTeam, ents[1].Label)
}
