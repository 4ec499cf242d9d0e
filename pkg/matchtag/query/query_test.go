package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/outlog"
	"github.com/cognicore/matchtag/pkg/matchtag/tagger"
)

func sentence(start, end int, label string, score float64, ents, adj []string) article.SentenceInfo {
	return article.SentenceInfo{
		Tags: map[string][]string{
			article.TagADV: {},
			article.TagADJ: adj,
			article.TagENT: ents,
		},
		Sentiment: article.Sentiment{Label: label, Score: score},
		Span:      article.Span{StartChar: start, EndChar: end},
	}
}

func wolvesNorwich() article.Tagged {
	text := "Jota scored twice. Krul was superb. Diogo Jota left early."
	return article.Tagged{
		Record: article.NewRecord(
			"id", "a1",
			KeyHeadline, "Diogo Jota double seals easy win for Wolves over Norwich",
			KeyHomeTeam, "Wolverhampton Wanderers",
			KeyAwayTeam, "Norwich City",
			KeyMatchDate, "2020-02-23",
			article.KeyText, text,
		),
		EntityLabels: map[string][]string{tagger.LabelPerson: {"Jota", "Krul", "Diogo Jota"}},
		Sentences: []article.SentenceInfo{
			sentence(0, 18, article.Positive, 0.9, []string{"Jota"}, []string{}),
			sentence(19, 35, article.Positive, 0.8, []string{"Krul"}, []string{"superb"}),
			sentence(36, 58, article.Negative, 0.6, []string{"Diogo Jota"}, []string{"early"}),
		},
	}
}

func spursChelsea() article.Tagged {
	text := "Kane was poor. Krul watched."
	return article.Tagged{
		Record: article.NewRecord(
			"id", "b2",
			KeyHomeTeam, "Tottenham Hotspur",
			KeyAwayTeam, "Chelsea",
			KeyMatchDate, "2020-02-22",
			article.KeyText, text,
		),
		EntityLabels: map[string][]string{tagger.LabelPerson: {"Kane", "Krul"}},
		Sentences: []article.SentenceInfo{
			sentence(0, 14, article.Negative, 0.8, []string{"Kane"}, []string{"poor"}),
			sentence(15, 28, article.Positive, 0.5, []string{"Krul"}, []string{}),
		},
	}
}

func TestPlayerMentions(t *testing.T) {
	ix := Build([]article.Tagged{wolvesNorwich(), spursChelsea()})

	mentions := ix.PlayerMentions("Jota")
	require.Len(t, mentions, 2)
	assert.Equal(t, "Jota scored twice.", mentions[0].Sentence)
	assert.Equal(t, "Diogo Jota left early.", mentions[1].Sentence)
	assert.Equal(t, []string{"early"}, mentions[1].Adjectives)
	assert.Equal(t, "2020-02-23", mentions[0].MatchDate)

	assert.Len(t, ix.PlayerMentions("diogo jota"), 2)
	assert.Len(t, ix.PlayerMentions("Krul"), 2)
	assert.Empty(t, ix.PlayerMentions("Jo"))
	assert.Empty(t, ix.PlayerMentions("  "))
}

func TestPlayers(t *testing.T) {
	ix := Build([]article.Tagged{wolvesNorwich(), spursChelsea()})

	all := ix.Players(nil)
	require.NotEmpty(t, all)
	assert.Equal(t, PlayerCount{Name: "Krul", Mentions: 2}, all[0])

	wolves := ix.Players([]string{"Wolverhampton"})
	assert.Equal(t, []PlayerCount{
		{Name: "Diogo Jota", Mentions: 1},
		{Name: "Jota", Mentions: 1},
		{Name: "Krul", Mentions: 1},
	}, wolves)

	assert.Empty(t, ix.Players([]string{"Arsenal"}))
}

func TestMatches(t *testing.T) {
	ix := Build([]article.Tagged{wolvesNorwich(), spursChelsea()})

	all := ix.Matches(MatchFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, "b2", all[0].ArticleID, "ordered by match date")

	got := ix.Matches(MatchFilter{Home: "wolverhampton wanderers", Away: "Norwich", Date: "2020-02-23"})
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, []string{"Jota", "Krul", "Diogo Jota"}, m.Players)
	assert.Equal(t, []string{"superb", "early"}, m.Adjectives)
	assert.Equal(t, 3, m.Sentences)
	assert.InDelta(t, (0.9+0.8-0.6)/3, m.Sentiment, 1e-9)

	assert.Empty(t, ix.Matches(MatchFilter{Date: "2021-01-01"}))
}

func TestSentiment(t *testing.T) {
	ix := Build([]article.Tagged{wolvesNorwich(), spursChelsea()})

	krul := ix.Sentiment(SentimentQuery{Entity: "Krul"})
	assert.Equal(t, 2, krul.Mentions)
	assert.Equal(t, 2, krul.Positive)
	assert.InDelta(t, 0.65, krul.Average, 1e-9)
	assert.Equal(t, "2020-02-22", krul.FirstDate)
	assert.Equal(t, "2020-02-23", krul.LastDate)

	bounded := ix.Sentiment(SentimentQuery{Entity: "Krul", From: "2020-02-23"})
	assert.Equal(t, 1, bounded.Mentions)
	assert.InDelta(t, 0.8, bounded.Average, 1e-9)

	jota := ix.Sentiment(SentimentQuery{Entity: "Jota"})
	assert.Equal(t, 1, jota.Negative)
	assert.InDelta(t, (0.9-0.6)/2, jota.Average, 1e-9)

	none := ix.Sentiment(SentimentQuery{Entity: "Salah"})
	assert.Zero(t, none.Mentions)
	assert.Zero(t, none.Average)
}

func TestBuildKeepsLatestEntryPerArticle(t *testing.T) {
	older := wolvesNorwich()
	newer := wolvesNorwich()
	newer.Sentences = newer.Sentences[:1]

	ix := Build([]article.Tagged{older, spursChelsea(), newer})
	assert.Equal(t, 2, ix.Len())
	assert.Len(t, ix.PlayerMentions("Jota"), 1)
}

func TestCacheRereadsAppendedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jl")
	c, err := NewCache(path, 4)
	require.NoError(t, err)

	ix, err := c.Index()
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	w, err := outlog.Open(path)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Append(wolvesNorwich()))
	// Make the change visible even on filesystems with coarse mtimes.
	later := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	ix, err = c.Index()
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	again, err := c.Index()
	require.NoError(t, err)
	assert.Same(t, ix, again)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
