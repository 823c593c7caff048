// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// braveBase is the Brave web search endpoint. Declared as a var so
// tests can substitute an httptest server.
var braveBase = "https://api.search.brave.com/res/v1/web/search"

const braveMaxCount = 20

// BraveClient queries the Brave Search API. It is the backup keyed
// tier, consulted when the hybrid provider comes up short.
type BraveClient struct {
	Client *http.Client
	APIKey string
}

// Name returns the provider identifier.
func (c *BraveClient) Name() string { return "brave" }

// Search runs one keyword search and returns normalized results.
// Brave reports no relevance scores, so scores are position-derived.
func (c *BraveClient) Search(ctx context.Context, query string, numResults int, cfg types.WebSearchConfig) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Brave query")
	}
	count := numResults
	if count <= 0 {
		count = cfg.MaxResults
	}
	if count > braveMaxCount {
		count = braveMaxCount
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("X-Subscription-Token", c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave API returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing Brave response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(br.Web.Results))
	for i, r := range br.Web.Results {
		sr := types.NewSearchResult(r.Title, r.URL, r.Description, positionScore(i))
		sr.PublishedDate = r.PageAge
		results = append(results, sr)
	}
	return results, nil
}

// Brave API JSON structures.
type braveResponse struct {
	Web braveWeb `json:"web"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PageAge     string `json:"page_age"`
}
