// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/pipeline"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Validation thresholds. Elements below the minimum length are dropped;
// a stage whose surviving list is empty counts as a failed attempt.
const (
	minSummaryLength = 80
	minInsightLength = 20
	minTopicLength   = 3
)

// Generator runs the four generation stages against one model.
type Generator struct {
	Model     llms.Model
	ModelName string
	Log       *slog.Logger
}

// complete sends a single-turn prompt and returns the raw text of the
// first choice.
func (g *Generator) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	var opts []llms.CallOption
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := g.Model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// Summary produces a prose summary of the sources. Falls back to a
// template built from the source titles.
func (g *Generator) Summary(ctx context.Context, query, tone string, sources []types.SearchResult) string {
	return pipeline.Run(ctx, g.Log, "summary", func(ctx context.Context) (string, error) {
		raw, err := g.complete(ctx, summaryPrompt(query, tone, sources), false)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(raw)
		if len(text) < minSummaryLength {
			return "", fmt.Errorf("summary too short: %d chars", len(text))
		}
		return text, nil
	}, func() string {
		return FallbackSummary(query, sources)
	})
}

// Citations produces one formatted citation per source in the requested
// style. Every returned citation has all six fields populated: defaults
// are generated from the matching source for anything the provider left
// out. Falls back to citations derived directly from the sources.
func (g *Generator) Citations(ctx context.Context, query string, style types.CitationStyle, sources []types.SearchResult) []types.Citation {
	return pipeline.Run(ctx, g.Log, "citations", func(ctx context.Context) ([]types.Citation, error) {
		raw, err := g.complete(ctx, citationsPrompt(query, style, sources), true)
		if err != nil {
			return nil, err
		}
		return parseCitations(raw, style, sources)
	}, func() []types.Citation {
		return FallbackCitations(style, sources)
	})
}

// Insights extracts key findings as a string list. Elements shorter
// than the minimum are dropped; an empty survivor list fails the
// attempt. Falls back to sentence-splitting the summary.
func (g *Generator) Insights(ctx context.Context, query, summary string, sources []types.SearchResult) []string {
	return pipeline.Run(ctx, g.Log, "insights", func(ctx context.Context) ([]string, error) {
		raw, err := g.complete(ctx, insightsPrompt(query, sources), true)
		if err != nil {
			return nil, err
		}
		return parseStringArray(raw, minInsightLength)
	}, func() []string {
		return FallbackInsights(query, summary)
	})
}

// RelatedTopics suggests follow-up research topics. Falls back to
// templated variations of the query.
func (g *Generator) RelatedTopics(ctx context.Context, query string) []string {
	return pipeline.Run(ctx, g.Log, "related topics", func(ctx context.Context) ([]string, error) {
		raw, err := g.complete(ctx, topicsPrompt(query), true)
		if err != nil {
			return nil, err
		}
		return parseStringArray(raw, minTopicLength)
	}, func() []string {
		return FallbackTopics(query)
	})
}

// rawCitation tolerates the field shapes providers actually emit:
// authors arrive as a string or an array, year as a string or number.
type rawCitation struct {
	Title     string          `json:"title"`
	Authors   json.RawMessage `json:"authors"`
	Year      json.RawMessage `json:"year"`
	Source    string          `json:"source"`
	URL       string          `json:"url"`
	Formatted string          `json:"formatted"`
}

// parseCitations extracts the first balanced JSON array from raw and
// validates each element to a complete six-field citation, generating
// defaults from the positionally matching source. Any parse failure is
// a stage failure (retryable), not a partial result.
func parseCitations(raw string, style types.CitationStyle, sources []types.SearchResult) ([]types.Citation, error) {
	arr, ok := httputil.ExtractJSONArray(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON array in citations response")
	}

	var parsed []rawCitation
	if err := json.Unmarshal([]byte(arr), &parsed); err != nil {
		return nil, fmt.Errorf("parsing citations array: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("citations array is empty")
	}

	citations := make([]types.Citation, 0, len(parsed))
	for i, rc := range parsed {
		var src types.SearchResult
		if i < len(sources) {
			src = sources[i]
		}

		c := types.Citation{
			Title:     rc.Title,
			Authors:   coerceAuthors(rc.Authors),
			Year:      coerceYear(rc.Year),
			Source:    rc.Source,
			URL:       rc.URL,
			Formatted: rc.Formatted,
		}
		if c.Title == "" {
			c.Title = defaultString(src.Title, "Untitled source")
		}
		if c.Authors == "" {
			c.Authors = defaultString(src.Author, "Unknown author")
		}
		if c.Year == "" {
			c.Year = defaultString(yearOf(src.PublishedDate), "n.d.")
		}
		if c.Source == "" {
			c.Source = defaultString(src.Domain, "web")
		}
		if c.URL == "" {
			c.URL = src.URL
		}
		if c.Formatted == "" {
			c.Formatted = FormatCitation(style, c)
		}
		citations = append(citations, c)
	}
	return citations, nil
}

// parseStringArray extracts the first balanced JSON array from raw and
// keeps only string elements at least minLen long.
func parseStringArray(raw string, minLen int) ([]string, error) {
	arr, ok := httputil.ExtractJSONArray(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var elements []any
	if err := json.Unmarshal([]byte(arr), &elements); err != nil {
		return nil, fmt.Errorf("parsing array: %w", err)
	}

	var out []string
	for _, el := range elements {
		s, ok := el.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) >= minLen {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable elements in array of %d", len(elements))
	}
	return out, nil
}

// coerceAuthors accepts a JSON string or array of strings.
func coerceAuthors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// coerceYear accepts a JSON string or number.
func coerceYear(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

// yearOf extracts the leading year from an ISO-ish date string.
func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func defaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Prompt builders. Each stage requests a strict shape; the parser
// tolerates prose wrapping around the JSON payload anyway.

func summaryPrompt(query, tone string, sources []types.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise research summary answering: %s\n", query)
	if tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", tone)
	}
	b.WriteString("Base the summary only on these sources:\n")
	writeSourceDigest(&b, sources)
	return b.String()
}

func citationsPrompt(query string, style types.CitationStyle, sources []types.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce %s-style citations for the sources below (research topic: %s).\n", strings.ToUpper(string(style)), query)
	b.WriteString("Respond with only a JSON array; each element must have the fields ")
	b.WriteString(`"title", "authors", "year", "source", "url", "formatted".` + "\n")
	writeSourceDigest(&b, sources)
	return b.String()
}

func insightsPrompt(query string, sources []types.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List the key insights about %q from these sources.\n", query)
	b.WriteString("Respond with only a JSON array of strings, one complete sentence each.\n")
	writeSourceDigest(&b, sources)
	return b.String()
}

func topicsPrompt(query string) string {
	return fmt.Sprintf("Suggest 5 related research topics for %q. Respond with only a JSON array of short strings.", query)
}

func writeSourceDigest(b *strings.Builder, sources []types.SearchResult) {
	for i, s := range sources {
		fmt.Fprintf(b, "%d. %s (%s): %s\n", i+1, s.Title, s.URL, s.Snippet)
	}
}
