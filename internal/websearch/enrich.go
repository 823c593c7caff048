// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// enrichBodyLimit caps how much of a page is read during enrichment.
const enrichBodyLimit = 512 * 1024

var titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Enricher fetches a result's URL and replaces title and snippet with
// scraped page content, adding a fixed score boost. It is a best-effort
// side channel: every failure leaves the result exactly as it was.
type Enricher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

// Enrich returns the enriched result, or the input unchanged when the
// fetch fails, times out, or yields no usable text.
func (e *Enricher) Enrich(ctx context.Context, r types.SearchResult) types.SearchResult {
	enriched, err := e.scrape(ctx, r)
	if err != nil {
		return r
	}
	return enriched
}

func (e *Enricher) scrape(ctx context.Context, r types.SearchResult) (types.SearchResult, error) {
	if r.URL == "" {
		return r, fmt.Errorf("result has no URL")
	}

	fetchCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, r.URL, nil)
	if err != nil {
		return r, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.UserAgent)

	resp, err := e.Client.Do(req)
	if err != nil {
		return r, fmt.Errorf("fetching %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r, fmt.Errorf("fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, enrichBodyLimit))
	if err != nil {
		return r, fmt.Errorf("reading page body: %w", err)
	}

	page := string(body)
	text := httputil.StripTags(stripNonContent(page))
	if text == "" {
		return r, fmt.Errorf("page yielded no text")
	}

	if m := titleTagRe.FindStringSubmatch(page); m != nil {
		if title := strings.TrimSpace(httputil.StripTags(m[1])); title != "" {
			r.Title = title
		}
	}
	r.Snippet = snippetFromAbstract(text)
	r.Score += 0.1
	if r.Score > 1 {
		r.Score = 1
	}
	return r, nil
}

var scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)

// stripNonContent removes script and style blocks whose contents would
// otherwise survive tag stripping as garbage text.
func stripNonContent(page string) string {
	return scriptStyleRe.ReplaceAllString(page, " ")
}
