// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine
// pipeline. All values are request-scoped: created fresh per call,
// immutable after construction, discarded once the response is written.
package types

import (
	"net/url"
	"strings"
)

// SearchResult is a single web search hit from any provider.
type SearchResult struct {
	// Title is the page or document title.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical link to the result.
	URL string `json:"url" yaml:"url"`

	// Snippet is a short extract or provider-supplied description.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Domain is the host component of URL. It is always derived via
	// DomainOf and never set independently.
	Domain string `json:"domain" yaml:"domain"`

	// Score is a relevance value in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// PublishedDate is the publication date if the provider reports one.
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// Author is the page author if the provider reports one.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

// DomainOf returns the host component of rawURL, without a www. prefix.
// An unparseable URL yields an empty domain.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// NewSearchResult builds a SearchResult with Domain derived from the URL.
func NewSearchResult(title, rawURL, snippet string, score float64) SearchResult {
	return SearchResult{
		Title:   title,
		URL:     rawURL,
		Snippet: snippet,
		Domain:  DomainOf(rawURL),
		Score:   score,
	}
}
