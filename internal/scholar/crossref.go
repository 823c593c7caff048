// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// crossrefBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefBase = "https://api.crossref.org/works"

const crossrefMaxRows = 200

// CrossrefClient queries the Crossref REST API. Deep paging uses the
// opaque cursor protocol: the first page requests the "*" sentinel and
// each response carries the cursor for the next page.
type CrossrefClient struct {
	Client *http.Client
	// PlusToken is the optional Crossref Metadata Plus token.
	PlusToken string
}

// Name returns the provider identifier.
func (c *CrossrefClient) Name() string { return string(types.SourceCrossref) }

// Search implements Provider.
func (c *CrossrefClient) Search(ctx context.Context, query string, page Page, cfg types.ScholarConfig) (types.PagedPapers, error) {
	return c.Works(ctx, query, page, "", cfg)
}

// Works queries one page of the works endpoint. filter is passed through
// as the Crossref filter expression when non-empty.
func (c *CrossrefClient) Works(ctx context.Context, query string, page Page, filter string, cfg types.ScholarConfig) (types.PagedPapers, error) {
	if strings.TrimSpace(query) == "" {
		return types.PagedPapers{}, fmt.Errorf("empty Crossref query")
	}

	params := url.Values{
		"query":  {query},
		"rows":   {fmt.Sprintf("%d", clampPerPage(page.PerPage, cfg.PerPage, crossrefMaxRows))},
		"cursor": {cursorOr(page.Cursor, "*")},
	}
	if filter != "" {
		params.Set("filter", filter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefBase+"?"+params.Encode(), nil)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if c.PlusToken != "" {
		req.Header.Set("Crossref-Plus-API-Token", "Bearer "+c.PlusToken)
	}

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PagedPapers{}, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return types.PagedPapers{}, fmt.Errorf("parsing Crossref response: %w", err)
	}

	return normalizeCrossref(cr), nil
}

// normalizeCrossref converts a raw works response into PagedPapers. Pure.
func normalizeCrossref(cr crossrefResponse) types.PagedPapers {
	out := types.PagedPapers{TotalCount: cr.Message.TotalResults}

	for _, item := range cr.Message.Items {
		doi := types.BareDOI(item.DOI)

		p := types.Paper{
			ID:                types.PaperID(types.SourceCrossref, doi, item.DOI),
			DOI:               doi,
			Title:             first(item.Title),
			Abstract:          httputil.StripTags(item.Abstract),
			Venue:             first(item.ContainerTitle),
			URL:               item.URL,
			Source:            types.SourceCrossref,
			ReferencedByCount: item.IsReferencedByCount,
		}

		for _, a := range item.Authors {
			if name := joinName(a.Given, a.Family); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}

		if len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
			parts := item.Issued.DateParts[0]
			p.Year = parts[0]
			p.PublishedAt = formatDateParts(parts)
		}

		for _, link := range item.Links {
			if strings.Contains(strings.ToLower(link.ContentType), "pdf") {
				p.PDFURL = link.URL
				break
			}
		}

		out.Papers = append(out.Papers, p)
	}

	if cr.Message.NextCursor != "" && len(cr.Message.Items) > 0 {
		cursor := cr.Message.NextCursor
		out.NextCursor = &cursor
	}
	return out
}

// joinName assembles "given family", tolerating either part missing.
func joinName(given, family string) string {
	given = strings.TrimSpace(given)
	family = strings.TrimSpace(family)
	switch {
	case given == "":
		return family
	case family == "":
		return given
	}
	return given + " " + family
}

// formatDateParts renders Crossref date-parts as YYYY, YYYY-MM, or
// YYYY-MM-DD depending on how much the record carries.
func formatDateParts(parts []int) string {
	switch len(parts) {
	case 1:
		return fmt.Sprintf("%04d", parts[0])
	case 2:
		return fmt.Sprintf("%04d-%02d", parts[0], parts[1])
	default:
		return fmt.Sprintf("%04d-%02d-%02d", parts[0], parts[1], parts[2])
	}
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	TotalResults int            `json:"total-results"`
	NextCursor   string         `json:"next-cursor"`
	Items        []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI                 string           `json:"DOI"`
	Title               []string         `json:"title"`
	Abstract            string           `json:"abstract"`
	Authors             []crossrefAuthor `json:"author"`
	Issued              crossrefDate     `json:"issued"`
	ContainerTitle      []string         `json:"container-title"`
	URL                 string           `json:"URL"`
	Links               []crossrefLink   `json:"link"`
	IsReferencedByCount int              `json:"is-referenced-by-count"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
