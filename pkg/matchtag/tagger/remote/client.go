// Package remote classifies sentence sentiment through a hosted
// text-classification endpoint (Hugging Face inference API compatible).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

const defaultBatchSize = 32

// Client calls a text-classification endpoint that accepts
// {"inputs": [...]} and answers with one label list per input.
type Client struct {
	BaseURL string
	APIKey  string
	// BatchSize caps the sentences sent per request.
	BatchSize int

	HTTPClient *http.Client
	// Limiter throttles requests. Nil means unthrottled.
	Limiter *rate.Limiter
}

// NewLimiter allows rps requests per second with a burst of one.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

type classifyRequest struct {
	Inputs []string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements tagger.Classifier.
func (c *Client) Classify(ctx context.Context, sentences []string) ([]article.Sentiment, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("sentiment: base URL required")
	}
	size := c.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	out := make([]article.Sentiment, 0, len(sentences))
	for start := 0; start < len(sentences); start += size {
		end := min(start+size, len(sentences))
		batch, err := c.send(ctx, sentences[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, inputs []string) ([]article.Sentiment, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	reqBody, err := json.Marshal(classifyRequest{Inputs: inputs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentiment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("sentiment: decode response: %w", err)
	}
	if len(raw) != len(inputs) {
		return nil, fmt.Errorf("%w: sentiment: %d results for %d inputs", internalerr.ErrAlignment, len(raw), len(inputs))
	}
	out := make([]article.Sentiment, len(raw))
	for i, item := range raw {
		s, err := decodeResult(item)
		if err != nil {
			return nil, fmt.Errorf("sentiment: result %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// decodeResult accepts a single {"label","score"} object or a list of them,
// in which case the highest score wins. Scores outside [0,1] are rejected.
func decodeResult(data json.RawMessage) (article.Sentiment, error) {
	var candidates []labelScore
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var one labelScore
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return article.Sentiment{}, err
		}
		candidates = []labelScore{one}
	} else if err := json.Unmarshal(data, &candidates); err != nil {
		return article.Sentiment{}, err
	}
	if len(candidates) == 0 {
		return article.Sentiment{}, fmt.Errorf("no labels")
	}
	for _, c := range candidates {
		if math.IsNaN(c.Score) || c.Score < 0 || c.Score > 1 {
			return article.Sentiment{}, fmt.Errorf("%w: score %v for %q outside [0,1]", internalerr.ErrMalformedInput, c.Score, c.Label)
		}
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return article.Sentiment{Label: normalizeLabel(best.Label), Score: best.Score}, nil
}

func normalizeLabel(label string) string {
	switch strings.ToUpper(label) {
	case "NEGATIVE", "NEG", "LABEL_0":
		return article.Negative
	case "POSITIVE", "POS", "LABEL_1":
		return article.Positive
	}
	return strings.ToUpper(label)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
