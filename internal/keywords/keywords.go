// Package keywords partitions a labeled corpus by sentiment and derives a
// ranked keyword signature per bucket through the external extractor.
package keywords

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mhavryliuk/reviewlens/internal/corpus"
	"github.com/mhavryliuk/reviewlens/internal/nlp"
	"github.com/mhavryliuk/reviewlens/internal/review"
)

// Buckets maps each sentiment label to its ranked keywords, descending by
// the extractor's relevance score. Ties keep the extractor's order; this
// layer never re-sorts or re-scores.
type Buckets map[string][]nlp.Keyword

// Negative returns the negative bucket, never nil.
func (b Buckets) Negative() []nlp.Keyword {
	if kws, ok := b[review.Negative]; ok {
		return kws
	}
	return []nlp.Keyword{}
}

// Extract builds keyword buckets for all three sentiment labels. Per
// label, the cleaned contents are joined into one space-separated blob in
// review order; an empty blob produces an empty bucket without calling
// the extractor. Results are capped at topN.
func Extract(ctx context.Context, c *corpus.Corpus, extractor nlp.Extractor, topN int) (Buckets, error) {
	buckets := make(Buckets, len(review.Labels))

	for _, label := range review.Labels {
		var texts []string
		for _, r := range c.Reviews {
			if r.Sentiment == label {
				texts = append(texts, r.CleanedContent)
			}
		}

		blob := strings.Join(texts, " ")
		if strings.TrimSpace(blob) == "" {
			buckets[label] = []nlp.Keyword{}
			continue
		}

		kws, err := extractor.Keywords(ctx, blob, topN)
		if err != nil {
			return nil, fmt.Errorf("extracting %s keywords: %w", label, err)
		}
		if len(kws) > topN {
			kws = kws[:topN]
		}
		buckets[label] = kws
		log.Printf("extracted %d %s keywords from %d reviews", len(kws), label, len(texts))
	}

	return buckets, nil
}
