package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/review"
)

const feedHeader = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns:im="http://itunes.apple.com/rss" xmlns="http://www.w3.org/2005/Atom">
<id>https://itunes.apple.com/us/rss/customerreviews/id=42/xml</id>
<title>iTunes Store: Customer Reviews</title>
<updated>2026-08-01T10:00:00-07:00</updated>`

func reviewEntry(id, title, content, rating, version, user string) string {
	return fmt.Sprintf(`<entry>
<updated>2026-07-30T01:02:03-07:00</updated>
<id>%s</id>
<title>%s</title>
<content type="text">%s</content>
<im:rating>%s</im:rating>
<im:version>%s</im:version>
<author><name>%s</name></author>
</entry>`, id, title, content, rating, version, user)
}

func feedWith(entries ...string) string {
	return feedHeader + strings.Join(entries, "\n") + "</feed>"
}

func TestFeedReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/us/rss/customerreviews/page=1/id=42/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, feedWith(
			reviewEntry("1001", "Great app", "Love it so much", "5", "2.3.1", "user1"),
			reviewEntry("1002", "Meh", "Crashes on login", "2", "2.3.1", "user2"),
		))
	}))
	defer srv.Close()

	fc := NewFeedClient()
	fc.BaseURL = srv.URL

	got, err := fc.Reviews(context.Background(), 42, "us", 500)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(got))
	}

	first := got[0]
	if first.IDString() != "1001" {
		t.Errorf("id = %v", first.ID)
	}
	if first.Title != "Great app" || first.Content != "Love it so much" {
		t.Errorf("unexpected text fields: %+v", first)
	}
	if r := first.RatingValue(); r == nil || *r != 5 {
		t.Errorf("rating = %v", r)
	}
	if first.AppVersion != "2.3.1" || first.UserName != "user1" {
		t.Errorf("unexpected meta fields: %+v", first)
	}
	if first.Date == "" {
		t.Error("expected a date")
	}
}

func TestFeedSkipsEntriesWithoutRating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The feed's first entry describes the app itself, no im:rating.
		appEntry := `<entry><id>app</id><title>The App</title><content type="text">blurb</content></entry>`
		fmt.Fprint(w, feedWith(appEntry, reviewEntry("1", "ok", "fine", "4", "1.0", "u")))
	}))
	defer srv.Close()

	fc := NewFeedClient()
	fc.BaseURL = srv.URL

	got, err := fc.Reviews(context.Background(), 42, "us", 500)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(got) != 1 || got[0].Title != "ok" {
		t.Errorf("expected only the rated entry, got %+v", got)
	}
}

func TestFeedRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := make([]string, 10)
		for i := range entries {
			entries[i] = reviewEntry(fmt.Sprintf("%d", i), "t", "c", "3", "1.0", "u")
		}
		fmt.Fprint(w, feedWith(entries...))
	}))
	defer srv.Close()

	fc := NewFeedClient()
	fc.BaseURL = srv.URL

	got, err := fc.Reviews(context.Background(), 42, "us", 3)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 reviews, got %d", len(got))
	}
}

func TestFeedMissingAppIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	fc := NewFeedClient()
	fc.BaseURL = srv.URL

	_, err := fc.Reviews(context.Background(), 42, "us", 500)
	if !errors.Is(err, ErrAppNotFound) {
		t.Errorf("expected ErrAppNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("term") != "megaplayer" || q.Get("country") != "us" || q.Get("entity") != "software" {
			t.Errorf("unexpected query: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resultCount": 2,
			"results": []map[string]any{
				{"trackId": 42, "trackName": "MegaPlayer", "sellerName": "Mega Inc", "bundleId": "com.mega.player"},
				{"trackId": 0, "trackName": "junk"},
			},
		})
	}))
	defer srv.Close()

	sc := NewSearchClient()
	sc.BaseURL = srv.URL

	got, err := sc.Search(context.Background(), "megaplayer", "us")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].AppID != 42 || got[0].Name != "MegaPlayer" || got[0].BundleID != "com.mega.player" {
		t.Errorf("unexpected candidate: %+v", got[0])
	}
}

func TestSearchValidatesInput(t *testing.T) {
	sc := NewSearchClient()
	if _, err := sc.Search(context.Background(), "  ", "us"); err == nil {
		t.Error("expected error for empty term")
	}
	if _, err := sc.Search(context.Background(), "app", "usa"); err == nil {
		t.Error("expected error for bad country code")
	}
}

func TestCollectorWritesRawFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/us/"):
			fmt.Fprint(w, feedWith(reviewEntry("u1", "good", "nice", "5", "1.0", "a")))
		default:
			// App missing in every other storefront.
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{
		Countries: []string{"gb", "us"},
		Collect:   config.Collect{Limit: 100},
		Output:    config.Output{DataDir: t.TempDir()},
	}
	c := NewCollector(cfg)
	c.feed.BaseURL = srv.URL

	r, err := c.Collect(context.Background(), 42)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if r.Total != 1 || r.Countries["us"] != 1 {
		t.Errorf("unexpected result: %+v", r)
	}
	if _, ok := r.Countries["gb"]; ok {
		t.Error("gb must be absent after not-found")
	}

	path := filepath.Join(cfg.RawDir("us"), "app_42_reviews_us.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("raw file missing: %v", err)
	}
	var raw review.RawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("raw file malformed: %v", err)
	}
	if raw.AppID != 42 || raw.Country != "us" || len(raw.Reviews) != 1 || raw.Retrieved == "" {
		t.Errorf("unexpected raw file: %+v", raw)
	}
}

func TestCollectorFailsWhenAllCountriesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := &config.Config{
		Countries: []string{"us"},
		Collect:   config.Collect{Limit: 100},
		Output:    config.Output{DataDir: t.TempDir()},
	}
	c := NewCollector(cfg)
	c.feed.BaseURL = srv.URL

	if _, err := c.Collect(context.Background(), 42); !errors.Is(err, ErrAppNotFound) {
		t.Errorf("expected ErrAppNotFound, got %v", err)
	}
}
