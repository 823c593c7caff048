// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

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

// europePMCBase is the Europe PMC REST search endpoint. Declared as a
// var so tests can substitute an httptest server.
var europePMCBase = "https://www.ebi.ac.uk/europepmc/webservice/rest/search"

const europePMCMaxPageSize = 100

// EuropePMCClient queries the Europe PMC literature registry. Paging
// uses an opaque cursor mark; the first page requests the "*" sentinel.
type EuropePMCClient struct {
	Client *http.Client
}

// Name returns the provider identifier.
func (c *EuropePMCClient) Name() string { return string(types.SourceEuropePMC) }

// Search implements Provider.
func (c *EuropePMCClient) Search(ctx context.Context, query string, page Page, cfg types.ScholarConfig) (types.PagedPapers, error) {
	if strings.TrimSpace(query) == "" {
		return types.PagedPapers{}, fmt.Errorf("empty Europe PMC query")
	}

	requested := cursorOr(page.Cursor, "*")
	params := url.Values{
		"query":      {query},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(clampPerPage(page.PerPage, cfg.PerPage, europePMCMaxPageSize))},
		"cursorMark": {requested},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, europePMCBase+"?"+params.Encode(), nil)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("Europe PMC API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PagedPapers{}, fmt.Errorf("Europe PMC API returned HTTP %d", resp.StatusCode)
	}

	var er europePMCResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return types.PagedPapers{}, fmt.Errorf("parsing Europe PMC response: %w", err)
	}

	return normalizeEuropePMC(er, requested), nil
}

// normalizeEuropePMC converts a raw search response into PagedPapers.
// requestedCursor is the mark this page was fetched with; Europe PMC
// signals the terminal page by echoing the same mark back. Pure.
func normalizeEuropePMC(er europePMCResponse, requestedCursor string) types.PagedPapers {
	out := types.PagedPapers{TotalCount: er.HitCount}

	for _, r := range er.ResultList.Results {
		doi := types.BareDOI(r.DOI)

		p := types.Paper{
			ID:             types.PaperID(types.SourceEuropePMC, doi, r.Source+"/"+r.ID),
			DOI:            doi,
			Title:          r.Title,
			Abstract:       httputil.StripTags(r.AbstractText),
			Authors:        splitAuthorString(r.AuthorString),
			PublishedAt:    r.FirstPublicationDate,
			Venue:          r.JournalTitle,
			Source:         types.SourceEuropePMC,
			OpenAccess:     r.IsOpenAccess == "Y",
			CitationsCount: r.CitedByCount,
			PDFURL:         pickPDFURL(r.FullTextURLList.FullTextURLs),
		}

		if year, err := strconv.Atoi(r.PubYear); err == nil {
			p.Year = year
		}
		if r.DOI != "" {
			p.URL = "https://doi.org/" + doi
		}

		out.Papers = append(out.Papers, p)
	}

	if mark := er.NextCursorMark; mark != "" && mark != requestedCursor && len(er.ResultList.Results) > 0 {
		out.NextCursor = &mark
	}
	return out
}

// splitAuthorString breaks Europe PMC's comma-joined author string
// ("Smith J, Jones A.") into trimmed names, dropping empties.
func splitAuthorString(s string) []string {
	var authors []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "."))
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// pickPDFURL selects a PDF link from the full-text URL candidates by
// matching "pdf" in the style, availability, or URL fields.
func pickPDFURL(candidates []europePMCFullTextURL) string {
	for _, c := range candidates {
		if strings.EqualFold(c.DocumentStyle, "pdf") ||
			strings.Contains(strings.ToLower(c.Availability), "pdf") ||
			strings.Contains(strings.ToLower(c.URL), "pdf") {
			return c.URL
		}
	}
	return ""
}

// Europe PMC API JSON structures.
type europePMCResponse struct {
	HitCount       int                 `json:"hitCount"`
	NextCursorMark string              `json:"nextCursorMark"`
	ResultList     europePMCResultList `json:"resultList"`
}

type europePMCResultList struct {
	Results []europePMCResult `json:"result"`
}

type europePMCResult struct {
	ID                   string                  `json:"id"`
	Source               string                  `json:"source"`
	DOI                  string                  `json:"doi"`
	Title                string                  `json:"title"`
	AbstractText         string                  `json:"abstractText"`
	AuthorString         string                  `json:"authorString"`
	PubYear              string                  `json:"pubYear"`
	FirstPublicationDate string                  `json:"firstPublicationDate"`
	JournalTitle         string                  `json:"journalTitle"`
	IsOpenAccess         string                  `json:"isOpenAccess"`
	CitedByCount         int                     `json:"citedByCount"`
	FullTextURLList      europePMCFullTextURLLst `json:"fullTextUrlList"`
}

type europePMCFullTextURLLst struct {
	FullTextURLs []europePMCFullTextURL `json:"fullTextUrl"`
}

type europePMCFullTextURL struct {
	Availability  string `json:"availability"`
	DocumentStyle string `json:"documentStyle"`
	URL           string `json:"url"`
}
