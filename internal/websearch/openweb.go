// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/scholar"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Open-web endpoints. Declared as vars so tests can substitute httptest
// servers.
var (
	duckDuckGoBase = "https://api.duckduckgo.com/"
	wikipediaBase  = "https://en.wikipedia.org/api/rest_v1/page/summary"
)

// openWebPerSource caps how many results each fan-out source
// contributes, so one chatty source cannot crowd out the others.
const openWebPerSource = 5

// DuckDuckGoSource queries the DuckDuckGo instant answer API. It
// returns the abstract (when the query resolves to a topic) plus a few
// related topics.
type DuckDuckGoSource struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the source identifier.
func (s *DuckDuckGoSource) Name() string { return "duckduckgo" }

func (s *DuckDuckGoSource) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, duckDuckGoBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo API returned HTTP %d", resp.StatusCode)
	}

	var dr duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo response: %w", err)
	}

	var results []types.SearchResult
	if dr.AbstractText != "" && dr.AbstractURL != "" {
		title := dr.Heading
		if title == "" {
			title = query
		}
		results = append(results, types.NewSearchResult(title, dr.AbstractURL, dr.AbstractText, 0.8))
	}
	for i, topic := range dr.RelatedTopics {
		if len(results) >= openWebPerSource {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, types.NewSearchResult(topic.Text, topic.FirstURL, topic.Text, 0.7-float64(i)*0.05))
	}
	return results, nil
}

// WikipediaSource fetches the REST summary for the page whose title
// matches the query. A miss (404) is an error like any other and is
// absorbed by the fan-out.
type WikipediaSource struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the source identifier.
func (s *WikipediaSource) Name() string { return "wikipedia" }

func (s *WikipediaSource) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	if title == "" {
		return nil, fmt.Errorf("empty Wikipedia query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaBase+"/"+url.PathEscape(title), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Wikipedia API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wikipedia API returned HTTP %d", resp.StatusCode)
	}

	var wr wikipediaSummary
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing Wikipedia response: %w", err)
	}
	if wr.Extract == "" {
		return nil, fmt.Errorf("Wikipedia summary has no extract")
	}

	pageURL := wr.ContentURLs.Desktop.Page
	if pageURL == "" {
		pageURL = "https://en.wikipedia.org/wiki/" + url.PathEscape(title)
	}
	return []types.SearchResult{types.NewSearchResult(wr.Title, pageURL, wr.Extract, 0.75)}, nil
}

// ArxivSource adapts the arXiv bibliographic client to the fan-out.
type ArxivSource struct {
	Client *scholar.ArxivClient
	Cfg    types.ScholarConfig
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return "arxiv" }

func (s *ArxivSource) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	page, err := s.Client.Works(ctx, query, scholar.Page{PerPage: openWebPerSource}, "relevance", "descending", s.Cfg)
	if err != nil {
		return nil, err
	}
	return PapersToResults(page.Papers), nil
}

// EuropePMCSource adapts the Europe PMC client to the fan-out.
type EuropePMCSource struct {
	Client *scholar.EuropePMCClient
	Cfg    types.ScholarConfig
}

// Name returns the source identifier.
func (s *EuropePMCSource) Name() string { return "europepmc" }

func (s *EuropePMCSource) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	page, err := s.Client.Search(ctx, query, scholar.Page{PerPage: openWebPerSource}, s.Cfg)
	if err != nil {
		return nil, err
	}
	return PapersToResults(page.Papers), nil
}

// PapersToResults converts normalized papers into search results with
// position-derived scores.
func PapersToResults(papers []types.Paper) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(papers))
	for i, p := range papers {
		link := p.URL
		if link == "" {
			link = p.PDFURL
		}
		sr := types.NewSearchResult(p.Title, link, snippetFromAbstract(p.Abstract), 0.75-float64(i)*0.03)
		sr.PublishedDate = p.PublishedAt
		if len(p.Authors) > 0 {
			sr.Author = p.Authors[0]
		}
		results = append(results, sr)
	}
	return results
}

// snippetFromAbstract truncates an abstract to snippet length on a
// rune boundary.
func snippetFromAbstract(abstract string) string {
	const maxSnippet = 300
	runes := []rune(abstract)
	if len(runes) <= maxSnippet {
		return abstract
	}
	return string(runes[:maxSnippet]) + "..."
}

// DuckDuckGo instant answer JSON structures.
type duckDuckGoResponse struct {
	Heading       string              `json:"Heading"`
	AbstractText  string              `json:"AbstractText"`
	AbstractURL   string              `json:"AbstractURL"`
	RelatedTopics []duckDuckGoRelated `json:"RelatedTopics"`
}

type duckDuckGoRelated struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Wikipedia REST summary JSON structures.
type wikipediaSummary struct {
	Title       string               `json:"title"`
	Extract     string               `json:"extract"`
	ContentURLs wikipediaContentURLs `json:"content_urls"`
}

type wikipediaContentURLs struct {
	Desktop wikipediaDesktop `json:"desktop"`
}

type wikipediaDesktop struct {
	Page string `json:"page"`
}
