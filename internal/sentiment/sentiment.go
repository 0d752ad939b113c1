// Package sentiment attaches sentiment labels to a corpus through the
// external classifier and aggregates them into corpus-level metrics.
package sentiment

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mhavryliuk/reviewlens/internal/corpus"
	"github.com/mhavryliuk/reviewlens/internal/nlp"
	"github.com/mhavryliuk/reviewlens/internal/review"
)

// Metrics summarizes sentiment over one corpus. Counts and Percentages hold
// only labels that actually occur; Percentages are of the total, rounded to
// two decimals.
type Metrics struct {
	TotalReviews int                `json:"total_reviews"`
	Counts       map[string]int     `json:"counts"`
	Percentages  map[string]float64 `json:"percentages"`
	AverageScore float64            `json:"average_score"`
}

// Labeler runs the classifier over a corpus in fixed-size batches.
// Batching bounds the classifier's peak load only; labels are identical
// for any batch size, and parallel batches are written back by position
// so output order always matches review order.
type Labeler struct {
	classifier nlp.Classifier
	batchSize  int
	workers    int
}

// NewLabeler creates a labeler. batchSize and workers must be >= 1.
func NewLabeler(classifier nlp.Classifier, batchSize, workers int) *Labeler {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Labeler{classifier: classifier, batchSize: batchSize, workers: workers}
}

// Apply classifies every review's cleaned content and attaches the
// canonical label and confidence score in place. Any failed batch aborts
// the whole run; no review keeps a partial result.
func (l *Labeler) Apply(ctx context.Context, c *corpus.Corpus) error {
	n := len(c.Reviews)
	if n == 0 {
		return nil
	}

	texts := make([]string, n)
	for i, r := range c.Reviews {
		texts[i] = r.CleanedContent
	}

	batches := (n + l.batchSize - 1) / l.batchSize
	results := make([][]nlp.Sentiment, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for b := 0; b < batches; b++ {
		b := b
		start := b * l.batchSize
		end := min(start+l.batchSize, n)
		g.Go(func() error {
			res, err := l.classifier.Classify(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("classifying reviews %d-%d: %w", start, end-1, err)
			}
			results[b] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	i := 0
	for _, batch := range results {
		for _, res := range batch {
			c.Reviews[i].Sentiment = canonicalLabel(res.Label)
			c.Reviews[i].SentimentScore = res.Score
			i++
		}
	}

	log.Printf("classified %d reviews in %d batches", n, batches)
	return nil
}

// canonicalLabel maps the classifier's raw label space onto the three
// sentiment buckets. Matching is an exact string comparison after
// lowercasing. Any label that is not recognized as positive or neutral is
// treated as negative: the buckets form a closed world and unknown labels
// are folded into the complaint bucket rather than dropped.
func canonicalLabel(raw string) string {
	switch strings.ToLower(raw) {
	case review.Positive:
		return review.Positive
	case review.Neutral:
		return review.Neutral
	default:
		return review.Negative
	}
}

// Aggregate computes sentiment metrics over a labeled corpus. An empty
// corpus yields zero-value metrics, not an error.
func Aggregate(c *corpus.Corpus) Metrics {
	m := Metrics{
		Counts:      map[string]int{},
		Percentages: map[string]float64{},
	}

	total := len(c.Reviews)
	m.TotalReviews = total
	if total == 0 {
		return m
	}

	var scoreSum float64
	for _, r := range c.Reviews {
		if r.Sentiment == "" {
			continue
		}
		m.Counts[r.Sentiment]++
		scoreSum += r.SentimentScore
	}

	for label, count := range m.Counts {
		m.Percentages[label] = round2(100 * float64(count) / float64(total))
	}
	m.AverageScore = scoreSum / float64(total)

	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
