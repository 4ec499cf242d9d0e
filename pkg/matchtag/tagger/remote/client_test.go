package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestClassifyBatches(t *testing.T) {
	var calls int
	client := &Client{
		BaseURL:   "https://api.test/models/sst2",
		APIKey:    "secret",
		BatchSize: 2,
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				calls++
				if got := req.Header.Get("Authorization"); got != "Bearer secret" {
					t.Fatalf("authorization header = %q", got)
				}
				var in classifyRequest
				if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				parts := make([]string, len(in.Inputs))
				for i := range in.Inputs {
					parts[i] = `[{"label":"NEGATIVE","score":0.1},{"label":"POSITIVE","score":0.9}]`
				}
				return jsonResponse(200, "["+strings.Join(parts, ",")+"]")
			}),
		},
	}

	out, err := client.Classify(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[2] != (article.Sentiment{Label: article.Positive, Score: 0.9}) {
		t.Fatalf("unexpected result: %+v", out[2])
	}
}

func TestClassifySingleObjectResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"label":"LABEL_0","score":0.7}]`)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Limiter: NewLimiter(100)}
	out, err := client.Classify(context.Background(), []string{"Awful defending."})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out[0].Label != article.Negative || out[0].Score != 0.7 {
		t.Fatalf("unexpected result: %+v", out[0])
	}
}

func TestClassifyCountMismatch(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test",
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) *http.Response {
			return jsonResponse(200, `[]`)
		})},
	}
	if _, err := client.Classify(context.Background(), []string{"one"}); !errors.Is(err, internalerr.ErrAlignment) {
		t.Fatalf("expected alignment error for missing results, got %v", err)
	}
}

func TestClassifyRejectsScoreOutOfRange(t *testing.T) {
	for _, body := range []string{
		`[{"label":"POSITIVE","score":1.7}]`,
		`[[{"label":"NEGATIVE","score":-0.2},{"label":"POSITIVE","score":0.4}]]`,
	} {
		client := &Client{
			BaseURL: "https://api.test",
			HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) *http.Response {
				return jsonResponse(200, body)
			})},
		}
		_, err := client.Classify(context.Background(), []string{"Good game."})
		if !errors.Is(err, internalerr.ErrMalformedInput) {
			t.Fatalf("body %s: expected malformed input error, got %v", body, err)
		}
	}
}

func TestClassifyHTTPError(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test",
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) *http.Response {
			return jsonResponse(503, `{"error":"loading"}`)
		})},
	}
	if _, err := client.Classify(context.Background(), []string{"one"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestClassifyRequiresURL(t *testing.T) {
	if _, err := (&Client{}).Classify(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLimiterDisabled(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
}
