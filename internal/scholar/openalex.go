// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// openAlexBase is the OpenAlex API root. Declared as a var so tests can
// substitute an httptest server.
var openAlexBase = "https://api.openalex.org"

const (
	openAlexMaxPerPage = 200
	openAlexIDPrefix   = "https://openalex.org/"
)

// OpenAlexClient queries the OpenAlex works API.
type OpenAlexClient struct {
	Client *http.Client
	// Mailto is sent as the mailto parameter for polite pool access.
	Mailto string
}

// Name returns the provider identifier.
func (c *OpenAlexClient) Name() string { return string(types.SourceOpenAlex) }

// Search implements Provider.
func (c *OpenAlexClient) Search(ctx context.Context, query string, page Page, cfg types.ScholarConfig) (types.PagedPapers, error) {
	return c.Works(ctx, query, page, "", cfg)
}

// Works queries one page of the works endpoint. filter is passed through
// as the OpenAlex filter expression when non-empty.
func (c *OpenAlexClient) Works(ctx context.Context, query string, page Page, filter string, cfg types.ScholarConfig) (types.PagedPapers, error) {
	if strings.TrimSpace(query) == "" {
		return types.PagedPapers{}, fmt.Errorf("empty OpenAlex query")
	}

	params := url.Values{
		"search":   {query},
		"per-page": {fmt.Sprintf("%d", clampPerPage(page.PerPage, cfg.PerPage, openAlexMaxPerPage))},
		"cursor":   {cursorOr(page.Cursor, "*")},
	}
	if filter != "" {
		params.Set("filter", filter)
	}
	if c.Mailto != "" {
		params.Set("mailto", c.Mailto)
	}

	reqURL := openAlexBase + "/works?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return types.PagedPapers{}, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PagedPapers{}, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return types.PagedPapers{}, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	return normalizeOpenAlex(oar), nil
}

// Aboutness calls the OpenAlex text-analysis endpoint and returns the
// provider-native JSON unchanged. At least one of title, abstract, or
// fulltext must be non-empty.
func (c *OpenAlexClient) Aboutness(ctx context.Context, title, abstract, fulltext string, cfg types.ScholarConfig) (json.RawMessage, error) {
	if title == "" && abstract == "" && fulltext == "" {
		return nil, fmt.Errorf("aboutness requires at least one of title, abstract, or fulltext")
	}

	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if abstract != "" {
		params.Set("abstract", abstract)
	}
	if fulltext != "" {
		params.Set("fulltext", fulltext)
	}
	if c.Mailto != "" {
		params.Set("mailto", c.Mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexBase+"/text?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex aboutness request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex aboutness returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading aboutness response: %w", err)
	}
	return json.RawMessage(body), nil
}

// normalizeOpenAlex converts a raw works response into PagedPapers. Pure.
func normalizeOpenAlex(oar openAlexResponse) types.PagedPapers {
	out := types.PagedPapers{TotalCount: oar.Meta.Count}

	for _, work := range oar.Results {
		doi := types.BareDOI(work.DOI)

		p := types.Paper{
			ID:             types.PaperID(types.SourceOpenAlex, doi, strings.TrimPrefix(work.ID, openAlexIDPrefix)),
			DOI:            doi,
			Title:          work.Title,
			Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
			Year:           work.PublicationYear,
			PublishedAt:    work.PublicationDate,
			Venue:          work.PrimaryLocation.Source.DisplayName,
			URL:            work.PrimaryLocation.LandingPageURL,
			PDFURL:         work.OpenAccess.OAURL,
			Source:         types.SourceOpenAlex,
			OpenAccess:     work.OpenAccess.IsOA,
			CitationsCount: work.CitedByCount,
		}
		if p.URL == "" {
			p.URL = work.ID
		}
		if p.PDFURL == "" {
			p.PDFURL = work.PrimaryLocation.PDFURL
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				p.Authors = append(p.Authors, authorship.Author.DisplayName)
			}
		}

		for _, concept := range work.Concepts {
			if concept.DisplayName == "" {
				continue
			}
			p.Concepts = append(p.Concepts, types.Concept{
				ID:    concept.ID,
				Name:  concept.DisplayName,
				Score: concept.Score,
			})
		}

		out.Papers = append(out.Papers, p)
	}

	if oar.Meta.NextCursor != "" && len(oar.Results) > 0 {
		cursor := oar.Meta.NextCursor
		out.NextCursor = &cursor
	}
	return out
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the positions
// where it appears: collect every (position, word) pair, stable-sort by
// position ascending, join with single spaces.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count      int    `json:"count"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	Concepts              []openAlexConcept    `json:"concepts"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexLocation struct {
	LandingPageURL string         `json:"landing_page_url"`
	PDFURL         string         `json:"pdf_url"`
	Source         openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

type openAlexConcept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}
