// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// cohereRerankBase is the Cohere v2 rerank endpoint. Declared as a var
// so tests can substitute an httptest server.
var cohereRerankBase = "https://api.cohere.com/v2/rerank"

const cohereRerankModel = "rerank-v3.5"

// CohereReranker reorders candidates by semantic relevance to the
// query. Callers treat any error as "keep the original order".
type CohereReranker struct {
	Client *http.Client
	APIKey string
}

// Rerank sends title+snippet documents in candidate order and rebuilds
// the list from the returned positional indices with updated scores.
// A returned index that does not resolve to a candidate falls back to
// the first candidate rather than failing the whole call.
func (c *CohereReranker) Rerank(ctx context.Context, query string, candidates []types.SearchResult, topN int, cfg types.WebSearchConfig) ([]types.SearchResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to rerank")
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	docs := make([]string, len(candidates))
	for i, r := range candidates {
		docs[i] = r.Title + "\n" + r.Snippet
	}

	body, err := json.Marshal(cohereRerankRequest{
		Model:     cohereRerankModel,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cohereRerankBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("rerank API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned HTTP %d", resp.StatusCode)
	}

	var cr cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing rerank response: %w", err)
	}
	if len(cr.Results) == 0 {
		return nil, fmt.Errorf("rerank returned no results")
	}

	reranked := make([]types.SearchResult, 0, len(cr.Results))
	for _, rr := range cr.Results {
		candidate := candidates[0]
		if rr.Index >= 0 && rr.Index < len(candidates) {
			candidate = candidates[rr.Index]
		}
		candidate.Score = rr.RelevanceScore
		reranked = append(reranked, candidate)
	}
	return reranked, nil
}

// Cohere rerank API JSON structures.
type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}
