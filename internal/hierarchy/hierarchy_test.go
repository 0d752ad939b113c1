package hierarchy

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mhavryliuk/reviewlens/internal/keywords"
	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/sentiment"
)

func testMetrics() sentiment.Metrics {
	return sentiment.Metrics{
		TotalReviews: 10,
		Counts: map[string]int{
			review.Positive: 6,
			review.Negative: 4,
		},
	}
}

func testBuckets() keywords.Buckets {
	return keywords.Buckets{
		review.Positive: {{Keyword: "great", Score: 0.8}, {Keyword: "smooth", Score: 0.7}},
		review.Negative: {{Keyword: "crash", Score: 0.912345}},
		review.Neutral:  {},
	}
}

func TestBuildShape(t *testing.T) {
	nodes := Build(testMetrics(), testBuckets(), 50)

	want := []Node{
		{Label: "Reviews", Parent: "", Value: 10},
		{Label: "Positive", Parent: "Reviews", Value: 6},
		{Label: "great", Parent: "Positive", Value: 80},
		{Label: "smooth", Parent: "Positive", Value: 70},
		{Label: "Negative", Parent: "Reviews", Value: 4},
		{Label: "crash", Parent: "Negative", Value: 91.23},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("unexpected nodes (-want +got):\n%s", diff)
	}
}

func TestBuildParentsPrecedeChildren(t *testing.T) {
	nodes := Build(testMetrics(), testBuckets(), 50)

	seen := map[string]bool{}
	for i, n := range nodes {
		if i == 0 {
			if n.Parent != "" {
				t.Fatalf("first node must be the root, got %+v", n)
			}
		} else if !seen[n.Parent] {
			t.Errorf("node %q references parent %q before it appears", n.Label, n.Parent)
		}
		seen[n.Label] = true
	}
}

func TestBuildOmitsEmptyBuckets(t *testing.T) {
	nodes := Build(testMetrics(), testBuckets(), 50)
	for _, n := range nodes {
		if n.Label == "Neutral" || n.Parent == "Neutral" {
			t.Errorf("zero-count bucket leaked into output: %+v", n)
		}
		if n.Parent == "Reviews" && n.Value == 0 {
			t.Errorf("bucket node with weight 0: %+v", n)
		}
	}
}

func TestBuildCapsKeywordsAtTopN(t *testing.T) {
	buckets := keywords.Buckets{review.Positive: {
		{Keyword: "a", Score: 0.9},
		{Keyword: "b", Score: 0.8},
		{Keyword: "c", Score: 0.7},
	}}
	metrics := sentiment.Metrics{TotalReviews: 3, Counts: map[string]int{review.Positive: 3}}

	nodes := Build(metrics, buckets, 2)
	var kwCount int
	for _, n := range nodes {
		if n.Parent == "Positive" {
			kwCount++
		}
	}
	if kwCount != 2 {
		t.Errorf("expected 2 keyword nodes, got %d", kwCount)
	}
}

func TestBuildEmptyMetrics(t *testing.T) {
	nodes := Build(sentiment.Metrics{Counts: map[string]int{}}, keywords.Buckets{}, 50)
	if len(nodes) != 1 || nodes[0].Label != RootLabel || nodes[0].Value != 0 {
		t.Errorf("expected lone root node, got %+v", nodes)
	}
}

func TestBuildMissingBucketForCountedLabel(t *testing.T) {
	// A counted label with no keyword bucket still gets its bucket node.
	metrics := sentiment.Metrics{TotalReviews: 2, Counts: map[string]int{review.Neutral: 2}}
	nodes := Build(metrics, keywords.Buckets{}, 50)

	want := []Node{
		{Label: "Reviews", Parent: "", Value: 2},
		{Label: "Neutral", Parent: "Reviews", Value: 2},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("unexpected nodes (-want +got):\n%s", diff)
	}
}

func TestKeywordWeightForScoreOfZero(t *testing.T) {
	buckets := keywords.Buckets{review.Negative: {{Keyword: "x", Score: 0}}}
	metrics := sentiment.Metrics{TotalReviews: 1, Counts: map[string]int{review.Negative: 1}}

	nodes := Build(metrics, buckets, 50)
	last := nodes[len(nodes)-1]
	if last.Label != "x" || last.Value != 0 {
		t.Errorf("unexpected keyword node: %+v", last)
	}
}
