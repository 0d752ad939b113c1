package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AppCandidate is one iTunes Search API match.
type AppCandidate struct {
	AppID    int64  `json:"app_id"`
	Name     string `json:"name"`
	Seller   string `json:"seller"`
	BundleID string `json:"bundle_id"`
}

// SearchClient looks up apps by name through the iTunes Search API.
type SearchClient struct {
	BaseURL string
	client  *http.Client
}

// NewSearchClient creates a search client against the public API.
func NewSearchClient() *SearchClient {
	return &SearchClient{
		BaseURL: defaultStoreURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Search returns software candidates matching name in one country
// storefront. country must be a 2-letter code.
func (sc *SearchClient) Search(ctx context.Context, name, country string) ([]AppCandidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("search term is empty")
	}
	if len(country) != 2 {
		return nil, fmt.Errorf("country must be a 2-letter code, got %q", country)
	}

	params := url.Values{
		"term":    {name},
		"country": {country},
		"entity":  {"software"},
		"limit":   {"10"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", sc.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching app store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("app store search returned status %d", resp.StatusCode)
	}

	var result struct {
		Results []struct {
			TrackID    int64  `json:"trackId"`
			TrackName  string `json:"trackName"`
			SellerName string `json:"sellerName"`
			BundleID   string `json:"bundleId"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	var candidates []AppCandidate
	for _, r := range result.Results {
		if r.TrackID == 0 || r.TrackName == "" {
			continue
		}
		candidates = append(candidates, AppCandidate{
			AppID:    r.TrackID,
			Name:     r.TrackName,
			Seller:   r.SellerName,
			BundleID: r.BundleID,
		})
	}
	return candidates, nil
}
