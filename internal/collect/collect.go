// Package collect fetches raw customer reviews from the App Store review
// feed and writes the per-country raw files consumed by the corpus loader.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/review"
)

// rawFile is the writer-side shape of the raw review file.
type rawFile struct {
	AppID     int64              `json:"app_id"`
	Country   string             `json:"country"`
	Retrieved string             `json:"retrieved"`
	Reviews   []review.RawReview `json:"reviews"`
}

// Result summarizes one collection run.
type Result struct {
	Total     int
	Countries map[string]int
	Files     []string
}

// Collector fetches reviews for the configured countries.
type Collector struct {
	cfg  *config.Config
	feed *FeedClient
}

// NewCollector creates a collector using the public App Store feed.
func NewCollector(cfg *config.Config) *Collector {
	return &Collector{cfg: cfg, feed: NewFeedClient()}
}

// Collect fetches up to the configured limit of reviews per country and
// writes one raw file per country that yielded any. A country where the
// app is missing is logged and skipped; the run fails only when every
// country comes up empty.
func (c *Collector) Collect(ctx context.Context, appID int64) (*Result, error) {
	r := &Result{Countries: make(map[string]int)}

	for _, country := range c.cfg.Countries {
		reviews, err := c.feed.Reviews(ctx, appID, country, c.cfg.Collect.Limit)
		if err != nil {
			log.Printf("collecting %d in %s: %v", appID, country, err)
			continue
		}

		path, err := c.writeRawFile(appID, country, reviews)
		if err != nil {
			return nil, err
		}

		r.Total += len(reviews)
		r.Countries[country] = len(reviews)
		r.Files = append(r.Files, path)
		log.Printf("collected %d reviews for %d in %s", len(reviews), appID, country)
	}

	if r.Total == 0 {
		return nil, fmt.Errorf("%w: %d in any configured country", ErrAppNotFound, appID)
	}
	return r, nil
}

func (c *Collector) writeRawFile(appID int64, country string, reviews []review.RawReview) (string, error) {
	dir := c.cfg.RawDir(country)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating raw directory: %w", err)
	}

	out := rawFile{
		AppID:     appID,
		Country:   country,
		Retrieved: time.Now().Format(time.RFC3339),
		Reviews:   reviews,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding raw reviews: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("app_%d_reviews_%s.json", appID, country))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing raw reviews: %w", err)
	}
	return path, nil
}
