// Package corpus loads per-country raw review files into one cleaned
// in-memory dataset per app, and saves/loads the processed file.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/textnorm"
)

// ErrNotFound means no raw files (or no processed file) exist for the app.
var ErrNotFound = errors.New("no review data for app")

// Corpus is the ordered review collection for one app. Review order is the
// per-file order concatenated in file-discovery order, which is stable for
// identical inputs because discovery sorts paths.
type Corpus struct {
	AppID   int64
	Reviews []review.Review
	// Skipped counts raw records that failed to parse and were dropped.
	Skipped int
}

// Load discovers raw review files matching rawGlob and builds the cleaned
// corpus for appID. A malformed file or record is skipped with a warning;
// only the complete absence of raw files is an error (ErrNotFound).
func Load(rawGlob string, appID int64) (*Corpus, error) {
	files, err := filepath.Glob(rawGlob)
	if err != nil {
		return nil, fmt.Errorf("globbing raw files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w %d: no raw review files", ErrNotFound, appID)
	}

	c := &Corpus{AppID: appID}
	for _, path := range files {
		country := filepath.Base(filepath.Dir(path))
		raw, err := readRawFile(path)
		if err != nil {
			log.Printf("skipping raw file %s: %v", path, err)
			continue
		}

		for _, msg := range raw.Reviews {
			var rr review.RawReview
			if err := json.Unmarshal(msg, &rr); err != nil {
				c.Skipped++
				log.Printf("skipping malformed review in %s: %v", path, err)
				continue
			}
			c.Reviews = append(c.Reviews, review.Review{
				ID:             rr.IDString(),
				Country:        country,
				Rating:         rr.RatingValue(),
				Title:          rr.Title,
				Content:        rr.Content,
				CleanedTitle:   textnorm.Normalize(rr.Title),
				CleanedContent: textnorm.Normalize(rr.Content),
			})
		}
	}

	return c, nil
}

func readRawFile(path string) (*review.RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw review.RawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &raw, nil
}

// SaveCleaned writes the processed file for the corpus. Writes are
// best-effort and last-write-wins; there is no locking.
func SaveCleaned(path string, c *Corpus) error {
	entries := c.Reviews
	if entries == nil {
		entries = []review.Review{}
	}
	out := review.CleanedFile{
		ProcessedAt:  time.Now().Format(time.RFC3339),
		TotalEntries: len(entries),
		Entries:      entries,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating processed directory: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cleaned reviews: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cleaned reviews: %w", err)
	}
	return nil
}

// LoadCleaned reads a previously processed file back into a Corpus.
// A missing file maps to ErrNotFound so callers can tell "run process
// first" apart from real I/O failures.
func LoadCleaned(path string, appID int64) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w %d: cleaned reviews not found, run process first", ErrNotFound, appID)
		}
		return nil, fmt.Errorf("reading cleaned reviews: %w", err)
	}

	var file review.CleanedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing cleaned reviews: %w", err)
	}

	return &Corpus{AppID: appID, Reviews: file.Entries}, nil
}
