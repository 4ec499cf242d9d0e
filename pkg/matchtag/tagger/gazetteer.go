package tagger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

// Entity labels.
const (
	LabelPerson = "PERSON"
	LabelTeam   = "ORG"
)

// Entity is a recognized mention with its rune span in the text.
type Entity struct {
	Label string
	Text  string
	// Canonical is the gazetteer name the mention resolved to, or the
	// mention itself for fallback matches.
	Canonical string
	Start     int
	End       int
}

// Recognizer finds named entities in an article text.
type Recognizer interface {
	Recognize(text string) []Entity
}

// GazetteerEntry is one known name and its aliases.
type GazetteerEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// GazetteerFile is the YAML layout of a gazetteer resource.
type GazetteerFile struct {
	Persons []GazetteerEntry `yaml:"persons"`
	Teams   []GazetteerEntry `yaml:"teams"`
	// Stopwords are capitalized words never treated as part of a name.
	Stopwords []string `yaml:"stopwords"`
}

// LoadGazetteer reads a gazetteer resource file and builds a recognizer
// with the capitalized-run fallback enabled.
func LoadGazetteer(path string) (*Gazetteer, error) {
	f, err := ReadGazetteerFile(path)
	if err != nil {
		return nil, err
	}
	return NewGazetteer(*f, true), nil
}

// ReadGazetteerFile parses a gazetteer resource file.
func ReadGazetteerFile(path string) (*GazetteerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f GazetteerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse gazetteer %s: %w", path, err)
	}
	return &f, nil
}

type pattern struct {
	runes     []rune
	label     string
	canonical string
}

// Gazetteer recognizes known persons and teams with a single Aho-Corasick
// pass, and optionally labels unknown runs of capitalized words as persons.
type Gazetteer struct {
	patterns []pattern
	matcher  *ahocorasick.Matcher
	teams    map[string]struct{}
	stop     map[string]struct{}
	fallback bool
}

// NewGazetteer builds a recognizer from f. With fallback set, runs of two
// to four capitalized words that match nothing in the gazetteer are
// reported as PERSON.
func NewGazetteer(f GazetteerFile, fallback bool) *Gazetteer {
	g := &Gazetteer{
		teams:    make(map[string]struct{}),
		stop:     make(map[string]struct{}),
		fallback: fallback,
	}
	for _, w := range defaultStopwords {
		g.stop[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range f.Stopwords {
		g.stop[strings.ToLower(w)] = struct{}{}
	}

	seen := make(map[string]bool)
	add := func(label string, e GazetteerEntry) {
		for _, surface := range append([]string{e.Name}, e.Aliases...) {
			key := strings.TrimSpace(surface)
			if key == "" {
				continue
			}
			lower := lowerRunes([]rune(key))
			if seen[string(lower)] {
				continue
			}
			seen[string(lower)] = true
			g.patterns = append(g.patterns, pattern{runes: lower, label: label, canonical: e.Name})
			if label == LabelTeam {
				for _, w := range strings.Fields(string(lower)) {
					g.teams[w] = struct{}{}
				}
			}
		}
	}
	for _, e := range f.Persons {
		add(LabelPerson, e)
	}
	for _, e := range f.Teams {
		add(LabelTeam, e)
	}

	if len(g.patterns) > 0 {
		dict := make([]string, len(g.patterns))
		for i, p := range g.patterns {
			dict[i] = string(p.runes)
		}
		g.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return g
}

// Recognize returns non-overlapping entities in order of appearance.
// Gazetteer matches win over fallback matches; among overlapping gazetteer
// matches the leftmost longest wins.
func (g *Gazetteer) Recognize(text string) []Entity {
	runes := []rune(text)
	lower := lowerRunes(runes)

	var found []Entity
	if g.matcher != nil {
		for _, idx := range g.matcher.Match([]byte(string(lower))) {
			p := g.patterns[idx]
			for _, start := range occurrences(lower, p.runes) {
				end := start + len(p.runes)
				found = append(found, Entity{
					Label:     p.label,
					Text:      string(runes[start:end]),
					Canonical: p.canonical,
					Start:     start,
					End:       end,
				})
			}
		}
	}
	found = resolveOverlaps(found)

	if g.fallback {
		found = resolveOverlaps(append(found, g.capitalizedRuns(runes, found)...))
	}
	return found
}

// occurrences returns every start offset of needle in haystack that sits on
// word boundaries.
func occurrences(haystack, needle []rune) []int {
	var out []int
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i] != needle[0] {
			continue
		}
		if i > 0 && isWordRune(haystack[i-1]) {
			continue
		}
		if i+m < n && isWordRune(haystack[i+m]) {
			continue
		}
		match := true
		for k := 1; k < m; k++ {
			if haystack[i+k] != needle[k] {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

func resolveOverlaps(ents []Entity) []Entity {
	sort.SliceStable(ents, func(i, j int) bool {
		if ents[i].Start != ents[j].Start {
			return ents[i].Start < ents[j].Start
		}
		return ents[i].End-ents[i].Start > ents[j].End-ents[j].Start
	})
	out := ents[:0]
	lastEnd := -1
	for _, e := range ents {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}

func (g *Gazetteer) capitalizedRuns(runes []rune, known []Entity) []Entity {
	covered := func(t Token) bool {
		for _, e := range known {
			if t.Start < e.End && e.Start < t.End {
				return true
			}
		}
		return false
	}

	var out []Entity
	var run []Token
	flush := func() {
		if len(run) >= 2 && len(run) <= 4 {
			start, end := run[0].Start, run[len(run)-1].End
			text := string(runes[start:end])
			out = append(out, Entity{Label: LabelPerson, Text: text, Canonical: text, Start: start, End: end})
		}
		run = run[:0]
	}

	for _, t := range Tokenize(runes, 0, len(runes)) {
		if !g.nameShaped(t) || covered(t) {
			flush()
			continue
		}
		if len(run) > 0 && string(runes[run[len(run)-1].End:t.Start]) != " " {
			flush()
		}
		run = append(run, t)
	}
	flush()
	return out
}

func (g *Gazetteer) nameShaped(t Token) bool {
	rs := []rune(t.Text)
	if !unicode.IsUpper(rs[0]) {
		return false
	}
	hasLower := false
	for _, r := range rs[1:] {
		if unicode.IsLower(r) {
			hasLower = true
			break
		}
	}
	if !hasLower {
		return false
	}
	lower := t.Lower()
	if _, ok := g.stop[lower]; ok {
		return false
	}
	_, team := g.teams[lower]
	return !team
}

var defaultStopwords = []string{
	"a", "an", "the", "and", "but", "or", "if", "in", "on", "at", "of", "for",
	"to", "by", "with", "from", "after", "before", "when", "while", "as",
	"he", "she", "it", "they", "we", "i", "his", "her", "their", "this", "that",
	"there", "then", "yet", "so", "not", "no", "it's",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"premier", "league", "cup", "fa", "var", "uefa", "champions",
}
