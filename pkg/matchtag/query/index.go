// Package query answers lookups over the tagged corpus: player mentions,
// players by team, match summaries and average sentiment.
package query

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/outlog"
	"github.com/cognicore/matchtag/pkg/matchtag/tagger"
)

// Article metadata keys in match report records.
const (
	KeyHeadline  = "headline"
	KeyHomeTeam  = "home_team"
	KeyAwayTeam  = "away_team"
	KeyMatchDate = "match_date"
	KeyLink      = "link"
)

// Index is an in-memory view of the output log, one entry per article.
type Index struct {
	articles []article.Tagged
}

// Build indexes entries, keeping the last entry per article id.
func Build(entries []article.Tagged) *Index {
	return &Index{articles: outlog.Dedup(entries)}
}

// Open reads and indexes the output log at path. A missing log yields an
// empty index.
func Open(path string) (*Index, error) {
	entries, err := outlog.Read(path)
	if err != nil {
		return nil, err
	}
	return Build(entries), nil
}

// Len returns the number of indexed articles.
func (ix *Index) Len() int { return len(ix.articles) }

// Mention is one sentence naming a player.
type Mention struct {
	ArticleID  string            `json:"article_id"`
	Headline   string            `json:"headline,omitempty"`
	MatchDate  string            `json:"match_date,omitempty"`
	Sentence   string            `json:"sentence"`
	Sentiment  article.Sentiment `json:"sentiment"`
	Adjectives []string          `json:"adjectives"`
	Adverbs    []string          `json:"adverbs"`
}

// PlayerMentions returns every sentence whose entities name player, in
// corpus order. "Jota" matches "Diogo Jota" and vice versa.
func (ix *Index) PlayerMentions(player string) []Mention {
	want := nameTokens(player)
	out := []Mention{}
	if len(want) == 0 {
		return out
	}
	for _, a := range ix.articles {
		text := []rune(a.String(article.KeyText))
		for _, s := range a.Sentences {
			if !anyNameMatches(s.Tags[article.TagENT], want) {
				continue
			}
			out = append(out, Mention{
				ArticleID:  a.ID(),
				Headline:   a.String(KeyHeadline),
				MatchDate:  a.String(KeyMatchDate),
				Sentence:   sentenceText(text, s.Span),
				Sentiment:  s.Sentiment,
				Adjectives: nonNil(s.Tags[article.TagADJ]),
				Adverbs:    nonNil(s.Tags[article.TagADV]),
			})
		}
	}
	return out
}

// PlayerCount is a person and how often they are mentioned.
type PlayerCount struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// Players lists the persons mentioned in reports of matches involving any
// of teams, most mentioned first. No teams means every report.
func (ix *Index) Players(teams []string) []PlayerCount {
	counts := make(map[string]int)
	for _, a := range ix.articles {
		if len(teams) > 0 && !involves(a, teams) {
			continue
		}
		for _, name := range a.EntityLabels[tagger.LabelPerson] {
			counts[name]++
		}
	}
	out := make([]PlayerCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, PlayerCount{Name: name, Mentions: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MatchFilter selects match reports. Empty fields match anything.
type MatchFilter struct {
	Home string
	Away string
	// Date is a match date (YYYY-MM-DD).
	Date string
}

// MatchSummary condenses one match report.
type MatchSummary struct {
	ArticleID  string   `json:"article_id"`
	Headline   string   `json:"headline,omitempty"`
	Link       string   `json:"link,omitempty"`
	HomeTeam   string   `json:"home_team,omitempty"`
	AwayTeam   string   `json:"away_team,omitempty"`
	MatchDate  string   `json:"match_date,omitempty"`
	Players    []string `json:"players"`
	Adjectives []string `json:"adjectives"`
	Sentences  int      `json:"sentences"`
	// Sentiment is the mean signed sentence sentiment in [-1,1].
	Sentiment float64 `json:"sentiment"`
}

// Matches returns summaries of the reports accepted by f, ordered by match
// date and then home team.
func (ix *Index) Matches(f MatchFilter) []MatchSummary {
	out := []MatchSummary{}
	for _, a := range ix.articles {
		if !sameTeam(a.String(KeyHomeTeam), f.Home) || !sameTeam(a.String(KeyAwayTeam), f.Away) {
			continue
		}
		if f.Date != "" && a.String(KeyMatchDate) != f.Date {
			continue
		}
		out = append(out, summarize(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchDate != out[j].MatchDate {
			return out[i].MatchDate < out[j].MatchDate
		}
		return out[i].HomeTeam < out[j].HomeTeam
	})
	return out
}

func summarize(a article.Tagged) MatchSummary {
	m := MatchSummary{
		ArticleID:  a.ID(),
		Headline:   a.String(KeyHeadline),
		Link:       a.String(KeyLink),
		HomeTeam:   a.String(KeyHomeTeam),
		AwayTeam:   a.String(KeyAwayTeam),
		MatchDate:  a.String(KeyMatchDate),
		Players:    distinct(a.EntityLabels[tagger.LabelPerson]),
		Adjectives: []string{},
		Sentences:  len(a.Sentences),
	}
	var adj []string
	sum := 0.0
	for _, s := range a.Sentences {
		adj = append(adj, s.Tags[article.TagADJ]...)
		sum += s.Sentiment.Signed()
	}
	m.Adjectives = distinct(adj)
	if len(a.Sentences) > 0 {
		m.Sentiment = sum / float64(len(a.Sentences))
	}
	return m
}

// SentimentQuery selects the sentences averaged by Sentiment.
type SentimentQuery struct {
	// Entity is a player or team name.
	Entity string
	// From and To bound the match date (YYYY-MM-DD, inclusive). Empty
	// means unbounded.
	From string
	To   string
}

// SentimentSummary is the aggregate sentiment towards an entity.
type SentimentSummary struct {
	Entity    string  `json:"entity"`
	Mentions  int     `json:"mentions"`
	Positive  int     `json:"positive"`
	Negative  int     `json:"negative"`
	Average   float64 `json:"average"`
	FirstDate string  `json:"first_date,omitempty"`
	LastDate  string  `json:"last_date,omitempty"`
}

// Sentiment averages the signed sentiment of every sentence whose entities
// name q.Entity.
func (ix *Index) Sentiment(q SentimentQuery) SentimentSummary {
	sum := SentimentSummary{Entity: q.Entity}
	want := nameTokens(q.Entity)
	if len(want) == 0 {
		return sum
	}
	total := 0.0
	for _, a := range ix.articles {
		date := a.String(KeyMatchDate)
		if (q.From != "" && date < q.From) || (q.To != "" && date > q.To) {
			continue
		}
		for _, s := range a.Sentences {
			if !anyNameMatches(s.Tags[article.TagENT], want) {
				continue
			}
			sum.Mentions++
			total += s.Sentiment.Signed()
			if s.Sentiment.Label == article.Negative {
				sum.Negative++
			} else {
				sum.Positive++
			}
			if date != "" && (sum.FirstDate == "" || date < sum.FirstDate) {
				sum.FirstDate = date
			}
			if date > sum.LastDate {
				sum.LastDate = date
			}
		}
	}
	if sum.Mentions > 0 {
		sum.Average = total / float64(sum.Mentions)
	}
	return sum
}

func involves(a article.Tagged, teams []string) bool {
	home, away := a.String(KeyHomeTeam), a.String(KeyAwayTeam)
	for _, t := range teams {
		if t == "" {
			continue
		}
		if sameTeam(home, t) || sameTeam(away, t) {
			return true
		}
	}
	return false
}

// sameTeam matches a team name against a query; an empty query matches
// anything and "Wolves" style short names match by containment.
func sameTeam(team, query string) bool {
	if query == "" {
		return true
	}
	t, q := strings.ToLower(team), strings.ToLower(strings.TrimSpace(query))
	return t == q || (t != "" && strings.Contains(t, q))
}

func nameTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-' && r != '\''
	})
}

func anyNameMatches(entities []string, want []string) bool {
	for _, e := range entities {
		got := nameTokens(e)
		if containsRun(got, want) || containsRun(want, got) {
			return true
		}
	}
	return false
}

// containsRun reports whether needle occurs as a contiguous run in hay.
func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for k := range needle {
			if hay[i+k] != needle[k] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func sentenceText(text []rune, sp article.Span) string {
	if sp.StartChar < 0 || sp.EndChar > len(text) || sp.StartChar > sp.EndChar {
		return ""
	}
	return string(text[sp.StartChar:sp.EndChar])
}

func distinct(in []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
