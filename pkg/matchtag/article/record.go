// Package article defines the Article Record exchanged between the corpus,
// the tagger and the output log, together with its content-derived identity.
package article

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Reserved keys that are never part of an article's identity.
const (
	KeyID           = "id"
	KeyText         = "text"
	KeyEntityLabels = "entity_labels"
	KeySentenceInfo = "sentence_info"
)

// Field is one named value of a record. Values are JSON values: string,
// json.Number, bool, nil, []any or Record for nested objects.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered mapping of field names to values. Key order is the
// order in which fields appeared in the corpus line.
type Record struct {
	Fields []Field
}

// NewRecord builds a record from alternating key/value pairs.
func NewRecord(kv ...any) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		r.Set(key, kv[i+1])
	}
	return r
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key when it is a string.
func (r Record) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set replaces the value under key in place, or appends a new field.
func (r *Record) Set(key string, value any) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
}

// Delete removes key if present.
func (r *Record) Delete(key string) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields = append(r.Fields[:i], r.Fields[i+1:]...)
			return
		}
	}
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.Fields)
}

// ID returns the assigned identifier, or "" before assignment.
func (r Record) ID() string {
	return r.String(KeyID)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := Record{Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = Field{Key: f.Key, Value: cloneValue(f.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes fields in their stored order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes the record as a JSON object, skipping keys in skip.
func (r Record) encode(buf *bytes.Buffer, skip map[string]bool) error {
	buf.WriteByte('{')
	first := true
	for _, f := range r.Fields {
		if skip[f.Key] {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeJSON(buf, f.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, f.Value); err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder appends a newline after every value.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON decodes an object while preserving key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("article: trailing data after object")
	}
	*r = rec
	return nil
}

func decodeObject(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, fmt.Errorf("article: expected object, got %v", tok)
	}
	return decodeFields(dec)
}

// decodeFields reads key/value pairs after the opening brace.
func decodeFields(dec *json.Decoder) (Record, error) {
	rec := Record{Fields: []Field{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("article: expected key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeFields(dec)
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("article: unexpected delimiter %v", t)
		}
	default:
		return t, nil
	}
}
