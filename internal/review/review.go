// Package review defines the review record and the raw/cleaned file schemas
// shared between the collector, the corpus loader, and the analysis stages.
package review

import (
	"encoding/json"
	"strconv"
)

// Sentiment bucket labels. Every classified review carries exactly one.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Labels lists the canonical sentiment buckets in their fixed output order.
var Labels = []string{Positive, Negative, Neutral}

// Review is one user-submitted review after cleaning. CleanedTitle and
// CleanedContent are pure functions of Title and Content. Sentiment and
// SentimentScore stay empty until the classification stage fills them in.
type Review struct {
	ID             string  `json:"id"`
	Country        string  `json:"country"`
	Rating         *int    `json:"rating"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	CleanedTitle   string  `json:"cleaned_title"`
	CleanedContent string  `json:"cleaned_content"`
	Sentiment      string  `json:"sentiment,omitempty"`
	SentimentScore float64 `json:"sentiment_score,omitempty"`
}

// RawReview is one entry of a raw review file as written by the collector.
// Fields that upstream sources occasionally mangle (id, rating) are typed
// loosely and coerced by the accessors below.
type RawReview struct {
	ID         any    `json:"id"`
	Date       string `json:"date"`
	UserName   string `json:"user_name"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Rating     any    `json:"rating"`
	AppVersion string `json:"app_version"`
}

// RawFile is the per-country raw review file schema.
type RawFile struct {
	AppID     int64             `json:"app_id"`
	Country   string            `json:"country"`
	Retrieved string            `json:"retrieved"`
	Reviews   []json.RawMessage `json:"reviews"`
}

// CleanedFile is the processed per-app file schema.
type CleanedFile struct {
	ProcessedAt  string   `json:"processed_at"`
	TotalEntries int      `json:"total_entries"`
	Entries      []Review `json:"entries"`
}

// IDString coerces the raw review id to a string. Numeric ids (the App
// Store feed serves them as numbers or strings depending on the endpoint)
// are formatted without a fractional part.
func (r *RawReview) IDString() string {
	switch v := r.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// RatingValue coerces the raw rating to an int, or nil when it is absent or
// not numeric. Range validation is left to the metrics stage.
func (r *RawReview) RatingValue() *int {
	switch v := r.Rating.(type) {
	case float64:
		n := int(v)
		return &n
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n := int(i)
			return &n
		}
		if f, err := v.Float64(); err == nil {
			n := int(f)
			return &n
		}
		return nil
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return &i
		}
		return nil
	default:
		return nil
	}
}
