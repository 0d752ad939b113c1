package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/database"
	"github.com/mhavryliuk/reviewlens/internal/nlp"
)

type stubClassifier struct{ err error }

func (s *stubClassifier) Classify(_ context.Context, texts []string) ([]nlp.Sentiment, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]nlp.Sentiment, len(texts))
	for i, t := range texts {
		out[i] = nlp.Sentiment{Label: "negative", Score: 0.9}
		if strings.Contains(t, "love") {
			out[i] = nlp.Sentiment{Label: "positive", Score: 0.95}
		}
	}
	return out, nil
}

func (s *stubClassifier) IsConfigured() bool { return true }

type stubExtractor struct{}

func (s *stubExtractor) Keywords(_ context.Context, text string, topN int) ([]nlp.Keyword, error) {
	kws := []nlp.Keyword{{Keyword: "crash", Score: 0.8}, {Keyword: "love", Score: 0.7}}
	if topN < len(kws) {
		kws = kws[:topN]
	}
	return kws, nil
}

func (s *stubExtractor) IsConfigured() bool { return true }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Countries = []string{"us"}
	cfg.Inference.BatchSize = 2
	cfg.Inference.Workers = 2
	cfg.Analysis.TopN = 10
	cfg.Output.DataDir = t.TempDir()
	return cfg
}

func writeRawFixture(t *testing.T, cfg *config.Config, appID int64) {
	t.Helper()
	dir := cfg.RawDir("us")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw := fmt.Sprintf(`{
  "app_id": %d,
  "country": "us",
  "retrieved": "2026-08-30T00:00:00Z",
  "reviews": [
    {"id": "1", "title": "Great", "content": "I love this app!", "rating": 5},
    {"id": "2", "title": "Broken", "content": "Constant crash on startup", "rating": 1},
    {"id": "3", "title": "Meh", "content": "It keeps crashing", "rating": "2"}
  ]
}`, appID)
	path := filepath.Join(dir, fmt.Sprintf("app_%d_reviews_us.json", appID))
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	const appID = 12345
	writeRawFixture(t, cfg, appID)

	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	p := NewWithCapabilities(cfg, db, &stubClassifier{}, &stubExtractor{})
	r := p.Run(context.Background(), appID)
	if r.Failed() {
		for _, s := range r.Steps {
			if s.Err != nil {
				t.Errorf("step %s: %v", s.Name, s.Err)
			}
		}
		t.Fatal("run failed")
	}
	if len(r.Steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(r.Steps))
	}

	for _, path := range []string{
		cfg.ProcessedPath(appID),
		filepath.Join(cfg.MetricsDir(appID), "metrics_summary.json"),
		filepath.Join(cfg.MetricsDir(appID), "rating_distribution.csv"),
		filepath.Join(cfg.InsightsDir(appID), "insights.json"),
		filepath.Join(cfg.InsightsDir(appID), "sentiment_hierarchy.json"),
		filepath.Join(cfg.ReportsDir(appID), fmt.Sprintf("report_%d.md", appID)),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact: %v", err)
		}
	}

	run, err := db.GetRun(r.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil {
		t.Fatal("run not recorded")
	}
	if run.Status != "ok" {
		t.Errorf("run status = %q, want ok", run.Status)
	}
	if run.ReviewCount != 3 {
		t.Errorf("run review count = %d, want 3", run.ReviewCount)
	}
	if run.FinishedAt == nil {
		t.Error("run has no finish timestamp")
	}
}

func TestRunWithoutRawFilesFails(t *testing.T) {
	cfg := testConfig(t)
	p := NewWithCapabilities(cfg, nil, &stubClassifier{}, &stubExtractor{})

	r := p.Run(context.Background(), 999)
	if !r.Failed() {
		t.Fatal("expected run to fail without raw files")
	}
	if r.Steps[0].Name != "process" || r.Steps[0].Err == nil {
		t.Errorf("expected process step error, got %+v", r.Steps[0])
	}
	if len(r.Steps) != 1 {
		t.Errorf("got %d steps after failure, want 1", len(r.Steps))
	}
}

func TestAnalyzeAbortsOnClassifierError(t *testing.T) {
	cfg := testConfig(t)
	const appID = 777
	writeRawFixture(t, cfg, appID)

	p := NewWithCapabilities(cfg, nil, &stubClassifier{err: nlp.ErrUnavailable}, &stubExtractor{})
	if _, err := p.Process(appID); err != nil {
		t.Fatal(err)
	}

	_, err := p.Analyze(context.Background(), appID)
	if !errors.Is(err, nlp.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.InsightsDir(appID), "insights.json")); statErr == nil {
		t.Error("insights written despite aborted analysis")
	}
}

func TestInsightsArtifactSchema(t *testing.T) {
	cfg := testConfig(t)
	const appID = 42
	writeRawFixture(t, cfg, appID)

	p := NewWithCapabilities(cfg, nil, &stubClassifier{}, &stubExtractor{})
	if _, err := p.Process(appID); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Analyze(context.Background(), appID); err != nil {
		t.Fatal(err)
	}

	f, err := p.LoadInsights(appID)
	if err != nil {
		t.Fatal(err)
	}
	if f.SentimentMetrics.TotalReviews != 3 {
		t.Errorf("total reviews = %d, want 3", f.SentimentMetrics.TotalReviews)
	}
	if len(f.NegativeKeywords) == 0 {
		t.Error("expected negative keywords")
	}
	if len(f.Insights) == 0 {
		t.Error("expected insights")
	}

	data, err := os.ReadFile(filepath.Join(cfg.InsightsDir(appID), "sentiment_hierarchy.json"))
	if err != nil {
		t.Fatal(err)
	}
	var nodes []map[string]any
	if err := json.Unmarshal(data, &nodes); err != nil {
		t.Fatal(err)
	}
	if len(nodes) == 0 || nodes[0]["label"] != "Reviews" {
		t.Errorf("hierarchy root missing: %v", nodes)
	}
}
