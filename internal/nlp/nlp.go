// Package nlp is the boundary to the external NLP capabilities: sentiment
// classification and keyword extraction, served by an inference sidecar
// over HTTP. The aggregation stages depend only on the interfaces here so
// tests can substitute fixed-output stubs.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable wraps every transport-level failure of the inference
// service. A failed call aborts the whole analysis run; nothing partial
// is persisted.
var ErrUnavailable = errors.New("inference service unavailable")

// Sentiment is one classification result, aligned positionally with the
// input text sequence.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Keyword is one ranked extraction result. The score scale is whatever the
// extraction model produces; this layer never re-scores.
type Keyword struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// Classifier labels a batch of texts with sentiment.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Sentiment, error)
	IsConfigured() bool
}

// Extractor returns ranked keywords for a text blob.
type Extractor interface {
	Keywords(ctx context.Context, text string, topN int) ([]Keyword, error)
	IsConfigured() bool
}

// Client talks to the inference sidecar. It implements both Classifier
// and Extractor.
type Client struct {
	BaseURL        string
	SentimentModel string
	KeywordModel   string
	client         *http.Client
}

// NewClient creates an inference client.
func NewClient(baseURL, sentimentModel, keywordModel string) *Client {
	return &Client{
		BaseURL:        baseURL,
		SentimentModel: sentimentModel,
		KeywordModel:   keywordModel,
		client:         &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks whether the inference service answers its health
// endpoint.
func (c *Client) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Classify sends texts to the sentiment endpoint and returns one result per
// input, in input order. A result count mismatch is an error: downstream
// stages re-associate labels with reviews by position.
func (c *Client) Classify(ctx context.Context, texts []string) ([]Sentiment, error) {
	body := map[string]any{
		"model": c.SentimentModel,
		"texts": texts,
	}

	var result struct {
		Results []struct {
			Label string `json:"label"`
			Score any    `json:"score"`
		} `json:"results"`
	}
	if err := c.post(ctx, "/v1/sentiment", body, &result); err != nil {
		return nil, err
	}

	if len(result.Results) != len(texts) {
		return nil, fmt.Errorf("sentiment results misaligned: sent %d texts, got %d results",
			len(texts), len(result.Results))
	}

	out := make([]Sentiment, len(result.Results))
	for i, r := range result.Results {
		out[i] = Sentiment{Label: r.Label, Score: scoreValue(r.Score)}
	}
	return out, nil
}

// Keywords asks the extraction endpoint for up to topN ranked keywords,
// unigrams and bigrams, with the model's english stopword filter. Ranking
// and score scale are passed through unchanged.
func (c *Client) Keywords(ctx context.Context, text string, topN int) ([]Keyword, error) {
	body := map[string]any{
		"model":      c.KeywordModel,
		"text":       text,
		"top_n":      topN,
		"ngram_min":  1,
		"ngram_max":  2,
		"stop_words": "english",
	}

	var result struct {
		Keywords []struct {
			Keyword string `json:"keyword"`
			Score   any    `json:"score"`
		} `json:"keywords"`
	}
	if err := c.post(ctx, "/v1/keywords", body, &result); err != nil {
		return nil, err
	}

	out := make([]Keyword, 0, len(result.Keywords))
	for _, k := range result.Keywords {
		out = append(out, Keyword{Keyword: k.Keyword, Score: scoreValue(k.Score)})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// scoreValue coerces a model confidence score to float64. Models sometimes
// emit scores as strings or omit them; anything non-numeric becomes 0.0
// rather than an error.
func scoreValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}
