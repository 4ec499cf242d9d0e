package config

import (
	"fmt"

	"github.com/cognicore/matchtag/pkg/matchtag/tagger"
	"github.com/cognicore/matchtag/pkg/matchtag/tagger/remote"
)

// Components holds the tagging resources built from a TaggerConfig.
type Components struct {
	Lexicon    *tagger.Lexicon
	Gazetteer  *tagger.Gazetteer
	Classifier tagger.Classifier
	Tagger     *tagger.Pipeline
}

// LoadComponents reads the lexicon and gazetteer files and assembles the
// tagging pipeline. Missing paths fall back to the built-in lexicon and an
// empty gazetteer.
func LoadComponents(tc TaggerConfig) (*Components, error) {
	comp := &Components{}

	var err error
	if tc.LexiconPath != "" {
		comp.Lexicon, err = tagger.LoadLexicon(tc.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	} else {
		comp.Lexicon, err = tagger.DefaultLexicon()
		if err != nil {
			return nil, err
		}
	}

	fallback := !tc.NoNameFallback
	if tc.GazetteerPath != "" {
		file, err := tagger.ReadGazetteerFile(tc.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer: %w", err)
		}
		comp.Gazetteer = tagger.NewGazetteer(*file, fallback)
	} else {
		comp.Gazetteer = tagger.NewGazetteer(tagger.GazetteerFile{}, fallback)
	}

	if tc.SentimentURL != "" {
		comp.Classifier = &remote.Client{
			BaseURL:   tc.SentimentURL,
			APIKey:    tc.SentimentAPIKey,
			BatchSize: tc.SentimentBatchSize,
			Limiter:   remote.NewLimiter(tc.SentimentRPS),
		}
	} else {
		comp.Classifier = tagger.NewLexiconScorer(comp.Lexicon)
	}

	comp.Tagger = tagger.New(comp.Lexicon,
		tagger.WithRecognizer(comp.Gazetteer),
		tagger.WithClassifier(comp.Classifier))
	return comp, nil
}
