// Package ratings aggregates star ratings into count/percentage/average
// metrics and writes the summary artifacts.
package ratings

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mhavryliuk/reviewlens/internal/review"
)

// Metrics is the rating summary for one app. RatingCounts always carries
// all five keys, zero-filled.
type Metrics struct {
	AverageRating float64        `json:"average_rating"`
	RatingCounts  map[string]int `json:"rating_counts"`
	TotalReviews  int            `json:"total_reviews"`
}

// Calculate aggregates ratings over the reviews. Only integer ratings in
// [1,5] count; everything else is ignored silently. Empty or all-invalid
// input yields zero metrics, never an error.
func Calculate(reviews []review.Review) Metrics {
	m := Metrics{RatingCounts: emptyCounts()}

	var sum int
	for _, r := range reviews {
		if r.Rating == nil || *r.Rating < 1 || *r.Rating > 5 {
			continue
		}
		m.RatingCounts[strconv.Itoa(*r.Rating)]++
		sum += *r.Rating
		m.TotalReviews++
	}

	if m.TotalReviews > 0 {
		m.AverageRating = float64(sum) / float64(m.TotalReviews)
	}
	return m
}

func emptyCounts() map[string]int {
	counts := make(map[string]int, 5)
	for r := 1; r <= 5; r++ {
		counts[strconv.Itoa(r)] = 0
	}
	return counts
}

// SaveJSON writes the metrics summary file into dir.
func SaveJSON(dir string, m Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	path := filepath.Join(dir, "metrics_summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics summary: %w", err)
	}
	return nil
}

// SaveCSV writes the rating distribution companion CSV into dir, rows from
// 5 stars down to 1, percentages of the valid total with two decimals.
func SaveCSV(dir string, m Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "rating_distribution.csv"))
	if err != nil {
		return fmt.Errorf("creating rating csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Rating", "Count", "Percentage"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for r := 5; r >= 1; r-- {
		count := m.RatingCounts[strconv.Itoa(r)]
		var pct float64
		if m.TotalReviews > 0 {
			pct = 100 * float64(count) / float64(m.TotalReviews)
		}
		row := []string{strconv.Itoa(r), strconv.Itoa(count), fmt.Sprintf("%.2f", pct)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadJSON reads a previously written metrics summary from dir.
func LoadJSON(dir string) (Metrics, error) {
	var m Metrics
	data, err := os.ReadFile(filepath.Join(dir, "metrics_summary.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing metrics summary: %w", err)
	}
	return m, nil
}
