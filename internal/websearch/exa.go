// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// exaBase is the Exa search endpoint. Declared as a var so tests can
// substitute an httptest server.
var exaBase = "https://api.exa.ai/search"

// ExaClient queries Exa's hybrid semantic search. This is the preferred
// keyed tier.
type ExaClient struct {
	Client *http.Client
	APIKey string
}

// Name returns the provider identifier.
func (c *ExaClient) Name() string { return "exa" }

// Search runs one hybrid search and returns normalized results.
func (c *ExaClient) Search(ctx context.Context, query string, numResults int, cfg types.WebSearchConfig) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Exa query")
	}
	if numResults <= 0 {
		numResults = cfg.MaxResults
	}

	body, err := json.Marshal(exaRequest{
		Query:      query,
		NumResults: numResults,
		Type:       "auto",
		Contents:   exaContents{Text: exaText{MaxCharacters: 500}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding Exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Exa API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Exa API returned HTTP %d", resp.StatusCode)
	}

	var er exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing Exa response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(er.Results))
	for i, r := range er.Results {
		score := r.Score
		if score <= 0 {
			score = positionScore(i)
		}
		sr := types.NewSearchResult(r.Title, r.URL, strings.TrimSpace(r.Text), score)
		sr.PublishedDate = r.PublishedDate
		sr.Author = r.Author
		results = append(results, sr)
	}
	return results, nil
}

// positionScore derives a descending relevance value from a result's
// rank when the provider reports no score of its own.
func positionScore(i int) float64 {
	score := 1.0 - float64(i)*0.05
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// Exa API JSON structures.
type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Type       string      `json:"type"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text exaText `json:"text"`
}

type exaText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate"`
	Author        string  `json:"author"`
}
