// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// maxFallbackItems caps list-shaped fallbacks.
const maxFallbackItems = 5

// FallbackSummary builds a deterministic summary from the query and the
// source titles. It performs no I/O and cannot fail.
func FallbackSummary(query string, sources []types.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research on %q drew on %d sources.", query, len(sources))
	for i, s := range sources {
		if i >= maxFallbackItems {
			break
		}
		fmt.Fprintf(&b, " %q (%s) discusses aspects of the topic.", s.Title, s.Domain)
	}
	b.WriteString(" A generated synthesis was unavailable; the listed sources should be consulted directly.")
	return b.String()
}

// FallbackCitations derives one complete citation per source. Every
// field is populated from the source or a fixed default.
func FallbackCitations(style types.CitationStyle, sources []types.SearchResult) []types.Citation {
	n := len(sources)
	if n > maxFallbackItems {
		n = maxFallbackItems
	}

	citations := make([]types.Citation, 0, n)
	for _, s := range sources[:n] {
		c := types.Citation{
			Title:   defaultString(s.Title, "Untitled source"),
			Authors: defaultString(s.Author, "Unknown author"),
			Year:    defaultString(yearOf(s.PublishedDate), "n.d."),
			Source:  defaultString(s.Domain, "web"),
			URL:     s.URL,
		}
		c.Formatted = FormatCitation(style, c)
		citations = append(citations, c)
	}
	return citations
}

// FallbackInsights splits the summary into sentences and keeps the
// substantial ones. When nothing survives it returns a single templated
// insight so the list is never empty.
func FallbackInsights(query, summary string) []string {
	var insights []string
	for _, sentence := range strings.Split(summary, ". ") {
		sentence = strings.TrimSpace(strings.TrimSuffix(sentence, "."))
		if len(sentence) < minInsightLength {
			continue
		}
		insights = append(insights, sentence+".")
		if len(insights) >= maxFallbackItems {
			break
		}
	}
	if len(insights) == 0 {
		insights = []string{fmt.Sprintf("Published literature on %s exists across multiple academic indexes.", query)}
	}
	return insights
}

// FallbackTopics returns templated variations of the query.
func FallbackTopics(query string) []string {
	return []string{
		fmt.Sprintf("Applications of %s", query),
		fmt.Sprintf("Recent advances in %s", query),
		fmt.Sprintf("Limitations of %s", query),
		fmt.Sprintf("History of %s", query),
		fmt.Sprintf("Future directions for %s", query),
	}
}

// FormatCitation renders a citation in the requested style. Unknown
// styles render as APA.
func FormatCitation(style types.CitationStyle, c types.Citation) string {
	switch style {
	case types.StyleMLA:
		return fmt.Sprintf("%s. %q %s, %s, %s.", c.Authors, c.Title+".", c.Source, c.Year, c.URL)
	case types.StyleIEEE:
		return fmt.Sprintf("%s, %q %s, %s. [Online]. Available: %s", c.Authors, c.Title+",", c.Source, c.Year, c.URL)
	default:
		return fmt.Sprintf("%s (%s). %s. %s. %s", c.Authors, c.Year, c.Title, c.Source, c.URL)
	}
}
