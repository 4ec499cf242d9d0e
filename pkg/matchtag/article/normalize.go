package article

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// TextPartSeparator joins multi-part article bodies.
const TextPartSeparator = "\n\n"

// Prepare joins a multi-part text into a single string and then gives r its
// identity if it has none, so an id assigned here always equals Hash of the
// prepared record. An existing id is kept as given. It reports whether r was
// modified.
func Prepare(r *Record) (bool, error) {
	changed := false
	if v, ok := r.Get(KeyText); ok {
		if _, isList := v.([]any); isList {
			r.Set(KeyText, normalizeText(v))
			changed = true
		}
	}
	if r.ID() != "" {
		return changed, nil
	}
	_, err := AssignID(r)
	return true, err
}

func normalizeText(v any) any {
	parts, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch s := p.(type) {
		case string:
			out = append(out, stripMarkup(s))
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	return strings.Join(out, TextPartSeparator)
}

// stripMarkup removes HTML tags that scrapers occasionally leave in body
// paragraphs, keeping the text content.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// Text returns the article body, or a MissingFieldError when it is absent or
// empty.
func Text(r Record) (string, error) {
	v, ok := r.Get(KeyText)
	if !ok || v == nil {
		return "", &MissingFieldError{Field: KeyText}
	}
	s, ok := v.(string)
	if !ok {
		if joined, ok := normalizeText(v).(string); ok {
			s = joined
		}
	}
	if strings.TrimSpace(s) == "" {
		return "", &MissingFieldError{Field: KeyText}
	}
	return s, nil
}
