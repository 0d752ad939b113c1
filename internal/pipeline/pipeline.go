// Package pipeline orchestrates the analysis stages for one app: process
// raw reviews, classify sentiment, extract keywords, derive insights,
// compute rating metrics, and compose the report. Each full run is
// recorded in the run ledger.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/corpus"
	"github.com/mhavryliuk/reviewlens/internal/database"
	"github.com/mhavryliuk/reviewlens/internal/hierarchy"
	"github.com/mhavryliuk/reviewlens/internal/insights"
	"github.com/mhavryliuk/reviewlens/internal/keywords"
	"github.com/mhavryliuk/reviewlens/internal/nlp"
	"github.com/mhavryliuk/reviewlens/internal/ratings"
	"github.com/mhavryliuk/reviewlens/internal/report"
	"github.com/mhavryliuk/reviewlens/internal/sentiment"
)

// InsightsFile is the persisted analysis artifact schema.
type InsightsFile struct {
	SentimentMetrics sentiment.Metrics `json:"sentiment_metrics"`
	NegativeKeywords []nlp.Keyword     `json:"negative_keywords"`
	Insights         []string          `json:"insights"`
}

// Analysis holds the in-memory results of one analyze stage.
type Analysis struct {
	Metrics   sentiment.Metrics
	Buckets   keywords.Buckets
	Hierarchy []hierarchy.Node
	Insights  []string
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID string
	AppID int64
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the analysis stages against one data directory.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	classifier nlp.Classifier
	extractor  nlp.Extractor
	entropy    *ulid.MonotonicEntropy
}

// New creates a pipeline wired to the configured inference service.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	client := nlp.NewClient(cfg.Inference.URL, cfg.Inference.SentimentModel, cfg.Inference.KeywordModel)
	return NewWithCapabilities(cfg, db, client, client)
}

// NewWithCapabilities creates a pipeline with explicit capability
// implementations. Tests inject fixed-output stubs here.
func NewWithCapabilities(cfg *config.Config, db *database.DB, classifier nlp.Classifier, extractor nlp.Extractor) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		db:         db,
		classifier: classifier,
		extractor:  extractor,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Process loads the raw review files for an app, cleans them, and writes
// the processed file.
func (p *Pipeline) Process(appID int64) (*corpus.Corpus, error) {
	c, err := corpus.Load(p.cfg.RawGlob(appID), appID)
	if err != nil {
		return nil, err
	}
	if err := corpus.SaveCleaned(p.cfg.ProcessedPath(appID), c); err != nil {
		return nil, err
	}
	log.Printf("processed %d reviews for app %d (%d skipped)", len(c.Reviews), appID, c.Skipped)
	return c, nil
}

// Metrics computes rating metrics from the processed file and writes the
// summary JSON and CSV.
func (p *Pipeline) Metrics(appID int64) (ratings.Metrics, error) {
	c, err := corpus.LoadCleaned(p.cfg.ProcessedPath(appID), appID)
	if err != nil {
		return ratings.Metrics{}, err
	}

	m := ratings.Calculate(c.Reviews)
	dir := p.cfg.MetricsDir(appID)
	if err := ratings.SaveJSON(dir, m); err != nil {
		return m, err
	}
	if err := ratings.SaveCSV(dir, m); err != nil {
		return m, err
	}
	return m, nil
}

// Analyze classifies the processed corpus, derives keyword buckets, the
// hierarchy and insights, and writes the analysis artifacts. If any
// capability call fails the run aborts and nothing is persisted.
func (p *Pipeline) Analyze(ctx context.Context, appID int64) (*Analysis, error) {
	c, err := corpus.LoadCleaned(p.cfg.ProcessedPath(appID), appID)
	if err != nil {
		return nil, err
	}

	labeler := sentiment.NewLabeler(p.classifier, p.cfg.Inference.BatchSize, p.cfg.Inference.Workers)
	if err := labeler.Apply(ctx, c); err != nil {
		return nil, err
	}

	metrics := sentiment.Aggregate(c)
	buckets, err := keywords.Extract(ctx, c, p.extractor, p.cfg.Analysis.TopN)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Metrics:   metrics,
		Buckets:   buckets,
		Hierarchy: hierarchy.Build(metrics, buckets, p.cfg.Analysis.TopN),
		Insights:  insights.Generate(buckets.Negative()),
	}

	if err := p.saveAnalysis(appID, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Pipeline) saveAnalysis(appID int64, a *Analysis) error {
	dir := p.cfg.InsightsDir(appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating insights directory: %w", err)
	}

	out := InsightsFile{
		SentimentMetrics: a.Metrics,
		NegativeKeywords: a.Buckets.Negative(),
		Insights:         a.Insights,
	}
	if err := writeJSON(filepath.Join(dir, "insights.json"), out); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "sentiment_hierarchy.json"), a.Hierarchy)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadInsights reads the persisted analysis artifact for an app.
func (p *Pipeline) LoadInsights(appID int64) (*InsightsFile, error) {
	data, err := os.ReadFile(filepath.Join(p.cfg.InsightsDir(appID), "insights.json"))
	if err != nil {
		return nil, err
	}
	var f InsightsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing insights: %w", err)
	}
	return &f, nil
}

// Run executes the full pipeline for an app and records the run in the
// ledger. Steps after a failed step are skipped.
func (p *Pipeline) Run(ctx context.Context, appID int64) *Result {
	r := &Result{
		RunID: ulid.MustNew(ulid.Now(), p.entropy).String(),
		AppID: appID,
	}
	if p.db != nil {
		if err := p.db.InsertRun(r.RunID, appID, "full"); err != nil {
			log.Printf("recording run start: %v", err)
		}
	}

	var reviewCount, skipped int

	c, err := p.Process(appID)
	if err == nil {
		reviewCount, skipped = len(c.Reviews), c.Skipped
		r.Steps = append(r.Steps, StepResult{
			Name:    "process",
			Summary: fmt.Sprintf("%d reviews cleaned, %d skipped", reviewCount, skipped),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "process", Err: err})
		p.finishRun(r, reviewCount, skipped, err)
		return r
	}

	if m, err := p.Metrics(appID); err == nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "metrics",
			Summary: fmt.Sprintf("average rating %.2f over %d rated reviews", m.AverageRating, m.TotalReviews),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "metrics", Err: err})
		p.finishRun(r, reviewCount, skipped, err)
		return r
	}

	a, err := p.Analyze(ctx, appID)
	if err == nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "analyze",
			Summary: fmt.Sprintf("%d reviews classified, %d insights", a.Metrics.TotalReviews, len(a.Insights)),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "analyze", Err: err})
		p.finishRun(r, reviewCount, skipped, err)
		return r
	}

	if path, err := p.composeReport(appID, a); err == nil {
		r.Steps = append(r.Steps, StepResult{Name: "report", Summary: path})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "report", Err: err})
	}

	p.finishRun(r, reviewCount, skipped, nil)
	return r
}

func (p *Pipeline) composeReport(appID int64, a *Analysis) (string, error) {
	m, err := ratings.LoadJSON(p.cfg.MetricsDir(appID))
	if err != nil {
		return "", fmt.Errorf("loading rating metrics: %w", err)
	}

	var appName string
	if p.db != nil {
		if app, err := p.db.GetApp(appID); err == nil && app != nil {
			appName = app.Name
		}
	}

	md := report.Compose(appName, appID, m, a.Metrics, a.Buckets.Negative(), a.Insights)
	return report.Save(p.cfg.ReportsDir(appID), appID, md)
}

func (p *Pipeline) finishRun(r *Result, reviewCount, skipped int, runErr error) {
	if p.db == nil {
		return
	}
	status := "ok"
	var detail *string
	if runErr != nil {
		status = "failed"
		msg := runErr.Error()
		detail = &msg
	} else if r.Failed() {
		status = "failed"
	}
	if err := p.db.FinishRun(r.RunID, status, reviewCount, skipped, detail); err != nil {
		log.Printf("recording run finish: %v", err)
	}
}
