// Package hierarchy assembles sentiment metrics and keyword buckets into a
// weighted node list for hierarchical visualization (root → sentiment
// buckets → keywords).
package hierarchy

import (
	"math"
	"strings"

	"github.com/mhavryliuk/reviewlens/internal/keywords"
	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/sentiment"
)

// RootLabel is the label of the single root node.
const RootLabel = "Reviews"

// Node is one entry of the tree. Parent is empty only for the root. The
// list is ordered so that every node's parent appears before it.
type Node struct {
	Label  string  `json:"label"`
	Parent string  `json:"parent"`
	Value  float64 `json:"value"`
}

// Build produces the node list: root first (weight = total reviews), then
// per sentiment label in fixed {positive, negative, neutral} order a bucket
// node (weight = bucket count) followed by its keyword nodes (weight =
// score*100, rounded to two decimals). Buckets with zero reviews are
// omitted entirely, children included.
func Build(metrics sentiment.Metrics, buckets keywords.Buckets, topN int) []Node {
	nodes := []Node{{Label: RootLabel, Parent: "", Value: float64(metrics.TotalReviews)}}

	for _, label := range review.Labels {
		count := metrics.Counts[label]
		if count == 0 {
			continue
		}

		bucketLabel := capitalize(label)
		nodes = append(nodes, Node{Label: bucketLabel, Parent: RootLabel, Value: float64(count)})

		kws := buckets[label]
		if len(kws) > topN {
			kws = kws[:topN]
		}
		for _, kw := range kws {
			nodes = append(nodes, Node{
				Label:  kw.Keyword,
				Parent: bucketLabel,
				Value:  round2(kw.Score * 100),
			})
		}
	}

	return nodes
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
