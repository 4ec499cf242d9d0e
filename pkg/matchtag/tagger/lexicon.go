package tagger

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds the word lists the rule based tagger and the lexicon
// sentiment scorer work from.
type Lexicon struct {
	Adverbs       []string           `yaml:"adverbs"`
	Adjectives    []string           `yaml:"adjectives"`
	NotAdverbs    []string           `yaml:"not_adverbs"`
	Positive      []string           `yaml:"positive"`
	Negative      []string           `yaml:"negative"`
	Negators      []string           `yaml:"negators"`
	Intensifiers  map[string]float64 `yaml:"intensifiers"`
	Abbreviations []string           `yaml:"abbreviations"`
}

// DefaultLexicon returns the built-in English match report lexicon.
func DefaultLexicon() (*Lexicon, error) {
	return parseLexicon(defaultLexiconYAML, "default lexicon")
}

// LoadLexicon reads a lexicon resource file. Lists in the file extend the
// built-in lexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	extra, err := parseLexicon(data, path)
	if err != nil {
		return nil, err
	}
	base, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	base.Merge(extra)
	return base, nil
}

func parseLexicon(data []byte, name string) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &lex, nil
}

// Merge appends the lists of other to l.
func (l *Lexicon) Merge(other *Lexicon) {
	l.Adverbs = append(l.Adverbs, other.Adverbs...)
	l.Adjectives = append(l.Adjectives, other.Adjectives...)
	l.NotAdverbs = append(l.NotAdverbs, other.NotAdverbs...)
	l.Positive = append(l.Positive, other.Positive...)
	l.Negative = append(l.Negative, other.Negative...)
	l.Negators = append(l.Negators, other.Negators...)
	l.Abbreviations = append(l.Abbreviations, other.Abbreviations...)
	if l.Intensifiers == nil {
		l.Intensifiers = make(map[string]float64)
	}
	for k, v := range other.Intensifiers {
		l.Intensifiers[k] = v
	}
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}
