// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch aggregates web results across keyed and open
// providers. The public operation never fails and never returns an
// empty list: every error path ends in either a lower-preference
// provider or the synthetic fallback.
package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/registry"
	"github.com/pdiddy/evidence-engine/internal/scholar"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Source is an unkeyed open provider queried during the fan-out step.
// Implementations must be safe for concurrent use.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.SearchResult, error)
}

// Aggregator runs the tiered search chain: hybrid keyed provider,
// backup keyed provider on shortfall, open-web fan-out, dedup, rerank,
// synthetic fallback, optional enrichment. Nil provider fields mean the
// credential is absent and the tier is skipped.
type Aggregator struct {
	Exa      *ExaClient
	Brave    *BraveClient
	Reranker *CohereReranker
	Unkeyed  []Source
	Enricher *Enricher

	Cfg types.WebSearchConfig
	Log *slog.Logger
}

// Output holds the aggregated results and provenance for response
// metadata. Used names the tier that supplied the primary results:
// "exa", "brave", "open-web", or "fallback".
type Output struct {
	Results     []types.SearchResult
	Used        string
	DupsRemoved int
}

// New wires an Aggregator from the credential registry. Keyed clients
// are constructed only when their credential is present; the unkeyed
// sources are always wired.
func New(reg *registry.Registry, cfg types.Config, log *slog.Logger) *Aggregator {
	client := httputil.NewClient(cfg.WebSearch.Timeout)
	scholarClient := httputil.NewClient(cfg.Scholar.Timeout)

	a := &Aggregator{
		Cfg: cfg.WebSearch,
		Log: log,
		Unkeyed: []Source{
			&DuckDuckGoSource{Client: client, UserAgent: cfg.WebSearch.UserAgent},
			&WikipediaSource{Client: client, UserAgent: cfg.WebSearch.UserAgent},
			&ArxivSource{Client: &scholar.ArxivClient{Client: scholarClient}, Cfg: cfg.Scholar},
			&EuropePMCSource{Client: &scholar.EuropePMCClient{Client: scholarClient}, Cfg: cfg.Scholar},
		},
	}

	if reg.IsAvailable(registry.Exa) {
		a.Exa = &ExaClient{Client: client, APIKey: reg.Key(registry.Exa)}
	}
	if reg.IsAvailable(registry.Brave) {
		a.Brave = &BraveClient{Client: client, APIKey: reg.Key(registry.Brave)}
	}
	if reg.IsAvailable(registry.Cohere) {
		a.Reranker = &CohereReranker{Client: client, APIKey: reg.Key(registry.Cohere)}
	}
	if cfg.WebSearch.Enrich {
		a.Enricher = &Enricher{
			Client:    httputil.NewClient(cfg.WebSearch.EnrichTimeout),
			Timeout:   cfg.WebSearch.EnrichTimeout,
			UserAgent: cfg.WebSearch.UserAgent,
		}
	}
	return a
}

// Search runs the full chain and returns at most numResults ordered
// results. It never returns an empty list and never returns an error:
// provider failures are logged and absorbed.
func (a *Aggregator) Search(ctx context.Context, query string, numResults int) Output {
	if numResults <= 0 {
		numResults = a.Cfg.MaxResults
	}

	var all []types.SearchResult
	used := "fallback"

	if a.Exa != nil {
		results, err := a.Exa.Search(ctx, query, numResults, a.Cfg)
		switch {
		case err != nil:
			a.Log.Warn("hybrid search failed", "provider", a.Exa.Name(), "error", err)
		case len(results) > 0:
			all = results
			used = a.Exa.Name()
		}
	}

	if len(all) < a.Cfg.MinKeyedResults && a.Brave != nil {
		results, err := a.Brave.Search(ctx, query, numResults-len(all), a.Cfg)
		if err != nil {
			a.Log.Warn("backup search failed", "provider", a.Brave.Name(), "error", err)
		} else {
			if used == "fallback" && len(results) > 0 {
				used = a.Brave.Name()
			}
			all = append(all, results...)
		}
	}

	if len(all) == 0 {
		all = a.fanOut(ctx, query)
		if len(all) > 0 {
			used = "open-web"
		}
	}

	deduped, removed := Dedupe(all)

	if a.Reranker != nil && len(deduped) > 0 {
		reranked, err := a.Reranker.Rerank(ctx, query, deduped, numResults, a.Cfg)
		if err != nil {
			// Rerank failure keeps the pre-rerank order.
			a.Log.Warn("rerank failed, keeping original order", "error", err)
		} else {
			deduped = reranked
		}
	}

	if len(deduped) == 0 {
		deduped = SyntheticResults(query)
		used = "fallback"
	}

	if a.Enricher != nil {
		for i := range deduped {
			deduped[i] = a.Enricher.Enrich(ctx, deduped[i])
		}
	}

	if len(deduped) > numResults {
		deduped = deduped[:numResults]
	}
	return Output{Results: deduped, Used: used, DupsRemoved: removed}
}

// fanOut queries every unkeyed source concurrently and merges the
// successes. One source's failure or timeout never cancels a sibling:
// errors are logged and dropped inside each branch.
func (a *Aggregator) fanOut(ctx context.Context, query string) []types.SearchResult {
	var (
		mu  sync.Mutex
		all []types.SearchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.Unkeyed {
		g.Go(func() error {
			results, err := src.Search(gctx, query)
			if err != nil {
				a.Log.Warn("open-web source failed", "source", src.Name(), "error", err)
				return nil
			}
			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return all
}

// Dedupe drops results whose exact title and exact URL were both seen
// before; the first occurrence wins. The key is deliberately strict
// (case-sensitive, no normalization) so distinct records are never
// merged, at the cost of letting near-duplicates through.
func Dedupe(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]struct{}, len(results))
	deduped := make([]types.SearchResult, 0, len(results))
	removed := 0

	for _, r := range results {
		key := r.Title + "\x00" + r.URL
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// SyntheticResults builds the three placeholder results returned when
// every provider came up empty. Each points at a major academic index
// search for the query. This path cannot fail.
func SyntheticResults(query string) []types.SearchResult {
	esc := url.QueryEscape(query)
	return []types.SearchResult{
		types.NewSearchResult(
			fmt.Sprintf("%s - Google Scholar", query),
			"https://scholar.google.com/scholar?q="+esc,
			fmt.Sprintf("Academic papers and citations related to %s.", query),
			0.95,
		),
		types.NewSearchResult(
			fmt.Sprintf("%s - Semantic Scholar", query),
			"https://www.semanticscholar.org/search?q="+esc,
			fmt.Sprintf("AI-indexed research literature on %s.", query),
			0.92,
		),
		types.NewSearchResult(
			fmt.Sprintf("%s - arXiv", query),
			"https://arxiv.org/list?query="+esc,
			fmt.Sprintf("Preprints and e-prints covering %s.", query),
			0.88,
		),
	}
}
