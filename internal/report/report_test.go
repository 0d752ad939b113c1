package report

import (
	"strings"
	"testing"

	"github.com/mhavryliuk/reviewlens/internal/insights"
	"github.com/mhavryliuk/reviewlens/internal/nlp"
	"github.com/mhavryliuk/reviewlens/internal/ratings"
	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/sentiment"
)

func sampleInputs() (ratings.Metrics, sentiment.Metrics, []nlp.Keyword, []string) {
	five, one := 5, 1
	rm := ratings.Calculate([]review.Review{{Rating: &five}, {Rating: &five}, {Rating: &one}})
	sm := sentiment.Metrics{
		TotalReviews: 3,
		Counts:       map[string]int{review.Positive: 2, review.Negative: 1},
		Percentages:  map[string]float64{review.Positive: 66.67, review.Negative: 33.33},
		AverageScore: 0.81,
	}
	neg := []nlp.Keyword{{Keyword: "crash", Score: 0.91}}
	return rm, sm, neg, insights.Generate(neg)
}

func TestComposeSections(t *testing.T) {
	rm, sm, neg, ins := sampleInputs()
	md := Compose("MegaPlayer", 42, rm, sm, neg, ins)

	for _, want := range []string{
		"# Review Analysis: MegaPlayer",
		"## Ratings",
		"| 5 | 2 | 66.67% |",
		"## Sentiment",
		"- Positive: 2 (66.67%)",
		"## Top Negative Keywords",
		"- crash (0.910)",
		"## Insights",
		"1. Users report stability issues.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestComposeFallsBackToAppID(t *testing.T) {
	rm, sm, neg, ins := sampleInputs()
	md := Compose("", 42, rm, sm, neg, ins)
	if !strings.Contains(md, "# Review Analysis: App 42") {
		t.Errorf("expected app id title, got:\n%s", md)
	}
}

func TestComposeDeterministic(t *testing.T) {
	rm, sm, neg, ins := sampleInputs()
	a := Compose("X", 1, rm, sm, neg, ins)
	b := Compose("X", 1, rm, sm, neg, ins)
	if a != b {
		t.Error("report composition must be deterministic")
	}
}

func TestComposeEmptyAnalysis(t *testing.T) {
	md := Compose("X", 1, ratings.Calculate(nil), sentiment.Metrics{}, nil, []string{insights.Fallback})
	if !strings.Contains(md, "No reviews classified.") {
		t.Errorf("expected empty-sentiment note:\n%s", md)
	}
	if strings.Contains(md, "## Top Negative Keywords") {
		t.Error("keyword section must be omitted when empty")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	rm, sm, neg, ins := sampleInputs()
	md := Compose("X", 42, rm, sm, neg, ins)

	path, err := Save(dir, 42, md)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(path, "report_42.md") {
		t.Errorf("unexpected path: %s", path)
	}

	loaded, err := Load(dir, 42)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != md {
		t.Error("loaded report differs from saved")
	}
}
