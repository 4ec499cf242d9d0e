package article

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// POS tag groups recorded per sentence.
const (
	TagADV = "ADV"
	TagADJ = "ADJ"
	TagENT = "ENT"
)

// Tagged is an article augmented with annotations by the tagging pipeline.
type Tagged struct {
	Record
	EntityLabels map[string][]string
	Sentences    []SentenceInfo
}

// SentenceInfo holds the aligned annotations for one sentence.
type SentenceInfo struct {
	Tags      map[string][]string
	Sentiment Sentiment
	Span      Span
}

// Sentiment is a polarity label with a confidence score in [0,1].
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Sentiment labels.
const (
	Positive = "POSITIVE"
	Negative = "NEGATIVE"
)

// Signed returns the score as a value in [-1,1], negative for NEGATIVE.
func (s Sentiment) Signed() float64 {
	if s.Label == Negative {
		return -s.Score
	}
	return s.Score
}

// Span is a half-open [StartChar, EndChar) character range into the text.
type Span struct {
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

type sentimentEnvelope struct {
	Sentiment Sentiment `json:"sentiment"`
}

// MarshalJSON encodes the triple as [tags, {"sentiment": ...}, span].
func (s SentenceInfo) MarshalJSON() ([]byte, error) {
	tags := s.Tags
	if tags == nil {
		tags = map[string][]string{}
	}
	return json.Marshal([]any{tags, sentimentEnvelope{Sentiment: s.Sentiment}, s.Span})
}

// UnmarshalJSON decodes the three-element array form.
func (s *SentenceInfo) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("sentence info: want 3 elements, got %d", len(parts))
	}
	var env sentimentEnvelope
	if err := json.Unmarshal(parts[0], &s.Tags); err != nil {
		return fmt.Errorf("sentence tags: %w", err)
	}
	if err := json.Unmarshal(parts[1], &env); err != nil {
		return fmt.Errorf("sentence sentiment: %w", err)
	}
	if err := json.Unmarshal(parts[2], &s.Span); err != nil {
		return fmt.Errorf("sentence span: %w", err)
	}
	s.Sentiment = env.Sentiment
	return nil
}

var annotationKeys = map[string]bool{
	KeyEntityLabels: true,
	KeySentenceInfo: true,
}

// MarshalJSON writes the record's fields in order followed by the
// annotations.
func (t Tagged) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Record.encode(&buf, annotationKeys); err != nil {
		return nil, err
	}
	// Reopen the object to append annotations.
	buf.Truncate(buf.Len() - 1)
	if buf.Len() > 1 {
		buf.WriteByte(',')
	}

	labels := t.EntityLabels
	if labels == nil {
		labels = map[string][]string{}
	}
	sentences := t.Sentences
	if sentences == nil {
		sentences = []SentenceInfo{}
	}
	buf.WriteString(`"entity_labels":`)
	if err := writeJSON(&buf, labels); err != nil {
		return nil, err
	}
	buf.WriteString(`,"sentence_info":`)
	if err := writeJSON(&buf, sentences); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an output log line back into a Tagged article.
func (t *Tagged) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := rec.UnmarshalJSON(data); err != nil {
		return err
	}
	var ann struct {
		EntityLabels map[string][]string `json:"entity_labels"`
		Sentences    []SentenceInfo      `json:"sentence_info"`
	}
	if err := json.Unmarshal(data, &ann); err != nil {
		return err
	}
	rec.Delete(KeyEntityLabels)
	rec.Delete(KeySentenceInfo)
	t.Record = rec
	t.EntityLabels = ann.EntityLabels
	t.Sentences = ann.Sentences
	return nil
}
