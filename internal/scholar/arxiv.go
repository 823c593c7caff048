// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// arxivBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var arxivBase = "https://export.arxiv.org/api/query"

const arxivMaxResults = 200

// ArxivClient queries the arXiv Atom feed. arXiv paginates by numeric
// offset rather than an opaque token; the client folds the offset into
// the shared cursor contract by emitting the next start offset as the
// cursor string.
type ArxivClient struct {
	Client *http.Client
}

// Name returns the provider identifier.
func (c *ArxivClient) Name() string { return string(types.SourceArxiv) }

// Search implements Provider.
func (c *ArxivClient) Search(ctx context.Context, query string, page Page, cfg types.ScholarConfig) (types.PagedPapers, error) {
	return c.Works(ctx, query, page, "relevance", "descending", cfg)
}

// Works queries one page of the feed. sortBy and sortOrder are passed
// through when non-empty.
func (c *ArxivClient) Works(ctx context.Context, query string, page Page, sortBy, sortOrder string, cfg types.ScholarConfig) (types.PagedPapers, error) {
	if strings.TrimSpace(query) == "" {
		return types.PagedPapers{}, fmt.Errorf("empty arXiv query")
	}

	// An unparseable cursor means the first page. The cursor is our own
	// rendering of the start offset, so this only happens on caller error.
	start, err := strconv.Atoi(page.Cursor)
	if err != nil || start < 0 {
		start = 0
	}
	perPage := clampPerPage(page.PerPage, cfg.PerPage, arxivMaxResults)

	params := url.Values{
		"search_query": {buildArxivQuery(query)},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(perPage)},
	}
	if sortBy != "" {
		params.Set("sortBy", sortBy)
	}
	if sortOrder != "" {
		params.Set("sortOrder", sortOrder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivBase+"?"+params.Encode(), nil)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PagedPapers{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return types.PagedPapers{}, fmt.Errorf("parsing arXiv feed: %w", err)
	}

	return normalizeArxiv(feed, start, perPage), nil
}

// buildArxivQuery renders free text as an all-fields search expression.
func buildArxivQuery(q string) string {
	terms := strings.Fields(q)
	return "all:" + strings.Join(terms, "+")
}

// normalizeArxiv converts a decoded feed into PagedPapers. Pure.
func normalizeArxiv(feed arxivFeed, start, perPage int) types.PagedPapers {
	out := types.PagedPapers{TotalCount: feed.TotalResults}

	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		doi := types.BareDOI(entry.DOI)
		p := types.Paper{
			ID:          types.PaperID(types.SourceArxiv, doi, arxivID),
			DOI:         doi,
			Title:       strings.TrimSpace(entry.Title),
			Abstract:    strings.TrimSpace(entry.Summary),
			PublishedAt: entry.Published,
			Venue:       "arXiv",
			URL:         entry.ID,
			Source:      types.SourceArxiv,
			OpenAccess:  true,
		}

		if len(entry.Published) >= 4 {
			if year, err := strconv.Atoi(entry.Published[:4]); err == nil {
				p.Year = year
			}
		}

		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}

		for _, link := range entry.Links {
			if link.Title == "pdf" || link.Type == "application/pdf" {
				p.PDFURL = link.Href
				break
			}
		}

		out.Papers = append(out.Papers, p)
	}

	// More records remain when the window ends before the reported total.
	if next := start + perPage; next < feed.TotalResults && len(feed.Entries) > 0 {
		cursor := strconv.Itoa(next)
		out.NextCursor = &cursor
	}
	return out
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// arXiv Atom feed XML structures. TotalResults lives in the OpenSearch
// namespace; the name-only tag matches it regardless of prefix.
type arxivFeed struct {
	TotalResults int          `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"doi"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}
