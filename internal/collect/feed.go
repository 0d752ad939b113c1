package collect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/mmcdole/gofeed"

	"github.com/mhavryliuk/reviewlens/internal/review"
)

// ErrAppNotFound means a storefront has no review feed for the app.
var ErrAppNotFound = errors.New("app not found")

const (
	defaultStoreURL = "https://itunes.apple.com"
	// The customer-review feed serves at most 50 entries per page and
	// at most 10 pages.
	feedPageSize = 50
	feedMaxPages = 10
)

// FeedClient fetches customer reviews from the App Store review feed.
type FeedClient struct {
	BaseURL string
	parser  *gofeed.Parser
}

// NewFeedClient creates a feed client against the public App Store.
func NewFeedClient() *FeedClient {
	return &FeedClient{BaseURL: defaultStoreURL, parser: gofeed.NewParser()}
}

// Reviews fetches up to limit most-recent reviews for an app in one
// country storefront, paging through the feed. A storefront that yields
// no review entries at all maps to ErrAppNotFound.
func (fc *FeedClient) Reviews(ctx context.Context, appID int64, country string, limit int) ([]review.RawReview, error) {
	var out []review.RawReview

	for page := 1; page <= feedMaxPages && len(out) < limit; page++ {
		feedURL := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%d/sortby=mostrecent/xml",
			fc.BaseURL, country, page, appID)

		feed, err := fc.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("%w: %d in %s: %v", ErrAppNotFound, appID, country, err)
			}
			// Later pages failing just ends the scan.
			log.Printf("review feed page %d for %d/%s failed: %v", page, appID, country, err)
			break
		}

		var pageReviews int
		for _, item := range feed.Items {
			entry := parseEntry(item)
			if entry == nil {
				continue
			}
			pageReviews++
			out = append(out, *entry)
			if len(out) >= limit {
				break
			}
		}

		// A short or empty page means the feed is exhausted.
		if pageReviews < feedPageSize {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d has no reviews in %s", ErrAppNotFound, appID, country)
	}
	return out, nil
}

// parseEntry maps one feed entry to a raw review. Entries without an
// im:rating extension (the feed's app-summary entry, for one) are not
// reviews and are dropped.
func parseEntry(item *gofeed.Item) *review.RawReview {
	rating := imExtension(item, "rating")
	if rating == "" {
		return nil
	}

	entry := &review.RawReview{
		Title:      item.Title,
		Content:    item.Description,
		AppVersion: imExtension(item, "version"),
	}
	if item.Content != "" {
		entry.Content = item.Content
	}
	if item.GUID != "" {
		entry.ID = item.GUID
	}
	if item.Author != nil {
		entry.UserName = item.Author.Name
	}
	if item.UpdatedParsed != nil {
		entry.Date = item.UpdatedParsed.Format("2006-01-02T15:04:05Z07:00")
	} else if item.PublishedParsed != nil {
		entry.Date = item.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
	}
	if n, err := strconv.Atoi(rating); err == nil {
		entry.Rating = float64(n)
	}

	return entry
}

func imExtension(item *gofeed.Item, name string) string {
	im, ok := item.Extensions["im"]
	if !ok {
		return ""
	}
	values, ok := im[name]
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0].Value
}
