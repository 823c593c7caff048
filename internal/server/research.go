// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/pipeline"
	"github.com/pdiddy/evidence-engine/internal/scholar"
	"github.com/pdiddy/evidence-engine/internal/websearch"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// scholarSourceLimit caps how many papers each requested database adds
// to the sources list.
const scholarSourceLimit = 3

// research runs the full pipeline. The only failure it can surface is
// the absence of any generation credential; every other error is
// absorbed by retries and fallbacks, so the response is otherwise
// always 200.
func (h *Handler) research(c *gin.Context) {
	start := time.Now()

	var req types.ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field query"})
		return
	}
	style := normalizeStyle(req.CitationStyle)

	ctx := c.Request.Context()
	model, modelName, err := h.newModel(ctx, h.Registry, h.Cfg.Generation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed: " + err.Error()})
		return
	}

	searchOut := pipeline.Run(ctx, h.Log, "search", func(ctx context.Context) (websearch.Output, error) {
		return h.Search.Search(ctx, req.Query, h.Cfg.WebSearch.MaxResults), nil
	}, func() websearch.Output {
		return websearch.Output{Results: websearch.SyntheticResults(req.Query), Used: "fallback"}
	})

	sources := searchOut.Results
	if extra := h.scholarSources(ctx, req.Query, req.Databases); len(extra) > 0 {
		sources, _ = websearch.Dedupe(append(sources, extra...))
		if limit := h.Cfg.WebSearch.MaxResults; len(sources) > limit {
			sources = sources[:limit]
		}
	}

	gen := &generate.Generator{Model: model, ModelName: modelName, Log: h.Log}
	summary := gen.Summary(ctx, req.Query, req.Tone, sources)
	citations := gen.Citations(ctx, req.Query, style, sources)
	insights := gen.Insights(ctx, req.Query, summary, sources)
	topics := gen.RelatedTopics(ctx, req.Query)

	c.JSON(http.StatusOK, types.ResearchResponse{
		Summary:       summary,
		Sources:       sources,
		Citations:     citations,
		KeyInsights:   insights,
		RelatedTopics: topics,
		Metadata: types.ResearchMetadata{
			RequestID:   uuid.NewString(),
			UsedSearch:  searchOut.Used,
			UsedModel:   modelName,
			SourceCount: len(sources),
			TookMs:      time.Since(start).Milliseconds(),
		},
	})
}

// scholarSources queries the requested bibliographic databases
// concurrently and converts the papers to sources. Unknown database
// names are ignored; each branch's failure is logged and isolated.
func (h *Handler) scholarSources(ctx context.Context, query string, databases []string) []types.SearchResult {
	type lookup func(ctx context.Context) (types.PagedPapers, error)

	page := scholar.Page{PerPage: scholarSourceLimit}
	lookups := map[string]lookup{
		string(types.SourceOpenAlex): func(ctx context.Context) (types.PagedPapers, error) {
			return h.OpenAlex.Works(ctx, query, page, "", h.Cfg.Scholar)
		},
		string(types.SourceCrossref): func(ctx context.Context) (types.PagedPapers, error) {
			return h.Crossref.Works(ctx, query, page, "", h.Cfg.Scholar)
		},
		string(types.SourceArxiv): func(ctx context.Context) (types.PagedPapers, error) {
			return h.Arxiv.Works(ctx, query, page, "", "", h.Cfg.Scholar)
		},
		string(types.SourceEuropePMC): func(ctx context.Context) (types.PagedPapers, error) {
			return h.EuropePMC.Search(ctx, query, page, h.Cfg.Scholar)
		},
	}

	var (
		mu  sync.Mutex
		out []types.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range databases {
		run, ok := lookups[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		g.Go(func() error {
			papers, err := run(gctx)
			if err != nil {
				h.Log.Warn("database lookup failed", "database", name, "error", err)
				return nil
			}
			mu.Lock()
			out = append(out, websearch.PapersToResults(papers.Papers)...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

// normalizeStyle defaults unknown citation styles to APA.
func normalizeStyle(style types.CitationStyle) types.CitationStyle {
	switch style {
	case types.StyleAPA, types.StyleMLA, types.StyleIEEE:
		return style
	}
	return types.StyleAPA
}
