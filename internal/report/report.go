// Package report composes a markdown summary of one analysis run. The
// report is assembled purely from already-computed metrics, so two runs
// over the same artifacts produce identical markdown.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mhavryliuk/reviewlens/internal/nlp"
	"github.com/mhavryliuk/reviewlens/internal/ratings"
	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/sentiment"
)

// maxKeywordRows bounds the negative-keyword table in the report.
const maxKeywordRows = 20

// Compose renders the analysis report markdown for one app.
func Compose(appName string, appID int64, rm ratings.Metrics, sm sentiment.Metrics, negative []nlp.Keyword, insightList []string) string {
	var b strings.Builder

	title := appName
	if title == "" {
		title = fmt.Sprintf("App %d", appID)
	}
	fmt.Fprintf(&b, "# Review Analysis: %s\n\n", title)

	b.WriteString("## Ratings\n\n")
	fmt.Fprintf(&b, "Total rated reviews: %d, average rating %.2f\n\n", rm.TotalReviews, rm.AverageRating)
	b.WriteString("| Rating | Count | Percentage |\n|---|---|---|\n")
	for r := 5; r >= 1; r-- {
		count := rm.RatingCounts[strconv.Itoa(r)]
		var pct float64
		if rm.TotalReviews > 0 {
			pct = 100 * float64(count) / float64(rm.TotalReviews)
		}
		fmt.Fprintf(&b, "| %d | %d | %.2f%% |\n", r, count, pct)
	}
	b.WriteString("\n")

	b.WriteString("## Sentiment\n\n")
	if sm.TotalReviews == 0 {
		b.WriteString("No reviews classified.\n\n")
	} else {
		fmt.Fprintf(&b, "%d reviews classified, mean confidence %.3f\n\n", sm.TotalReviews, sm.AverageScore)
		for _, label := range review.Labels {
			count, ok := sm.Counts[label]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: %d (%.2f%%)\n", capitalize(label), count, sm.Percentages[label])
		}
		b.WriteString("\n")
	}

	if len(negative) > 0 {
		b.WriteString("## Top Negative Keywords\n\n")
		limit := min(len(negative), maxKeywordRows)
		for _, kw := range negative[:limit] {
			fmt.Fprintf(&b, "- %s (%.3f)\n", kw.Keyword, kw.Score)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Insights\n\n")
	for i, insight := range insightList {
		fmt.Fprintf(&b, "%d. %s\n", i+1, insight)
	}

	return b.String()
}

// Save writes the report markdown into dir and returns the file path.
func Save(dir string, appID int64, markdown string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%d.md", appID))
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Load reads a previously saved report.
func Load(dir string, appID int64) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("report_%d.md", appID)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
