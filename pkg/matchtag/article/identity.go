package article

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// identityExcluded are top-level keys that never contribute to identity:
// the id itself and annotations added by a later pass.
var identityExcluded = map[string]bool{
	KeyID:           true,
	KeyEntityLabels: true,
	KeySentenceInfo: true,
}

// Canonical returns the canonical serialization of r used for hashing:
// compact JSON with object keys sorted bytewise at every depth, strings in
// Unicode NFC, numbers in their original literal form.
func Canonical(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonicalObject(&buf, r, identityExcluded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the hex-encoded SHA-256 digest of r's canonical form.
func Hash(r Record) (string, error) {
	data, err := Canonical(r)
	if err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func writeCanonicalObject(buf *bytes.Buffer, r Record, skip map[string]bool) error {
	keys := make([]string, 0, len(r.Fields))
	values := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		if skip[f.Key] {
			continue
		}
		if _, dup := values[f.Key]; !dup {
			keys = append(keys, f.Key)
		}
		values[f.Key] = f.Value
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeCanonicalValue(buf, values[k]); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeCanonicalString(buf, t)
	case json.Number:
		buf.WriteString(t.String())
	case float64, float32, int, int32, int64:
		return writeJSON(buf, t)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Record:
		return writeCanonicalObject(buf, t, nil)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	return writeJSON(buf, norm.NFC.String(s))
}

// AssignID computes and stores r's identity unless one is already present.
// It must run before any mutation of hashed fields.
func AssignID(r *Record) (string, error) {
	if id := r.ID(); id != "" {
		return id, nil
	}
	id, err := Hash(*r)
	if err != nil {
		return "", err
	}
	r.Set(KeyID, id)
	return id, nil
}
