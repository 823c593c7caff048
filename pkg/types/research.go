// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CitationStyle selects the bibliographic style requested by the caller.
type CitationStyle string

const (
	StyleAPA  CitationStyle = "apa"
	StyleMLA  CitationStyle = "mla"
	StyleIEEE CitationStyle = "ieee"
)

// Citation is one bibliographic entry produced by the citation stage.
// All six fields are always populated; the stage fills defaults for
// anything the provider left out.
type Citation struct {
	Title     string `json:"title" yaml:"title"`
	Authors   string `json:"authors" yaml:"authors"`
	Year      string `json:"year" yaml:"year"`
	Source    string `json:"source" yaml:"source"`
	URL       string `json:"url" yaml:"url"`
	Formatted string `json:"formatted" yaml:"formatted"`
}

// ResearchRequest is the body of POST /research.
type ResearchRequest struct {
	Query         string        `json:"query"`
	CitationStyle CitationStyle `json:"citationStyle,omitempty"`
	Tone          string        `json:"tone,omitempty"`
	Databases     []string      `json:"databases,omitempty"`
}

// ResearchMetadata describes how a research response was produced.
type ResearchMetadata struct {
	RequestID   string `json:"requestId"`
	UsedSearch  string `json:"usedSearch"`
	UsedModel   string `json:"usedModel"`
	SourceCount int    `json:"sourceCount"`
	TookMs      int64  `json:"tookMs"`
}

// ResearchResponse is the composed result of the full pipeline.
type ResearchResponse struct {
	Summary       string           `json:"summary"`
	Sources       []SearchResult   `json:"sources"`
	Citations     []Citation       `json:"citations"`
	KeyInsights   []string         `json:"keyInsights"`
	RelatedTopics []string         `json:"relatedTopics"`
	Metadata      ResearchMetadata `json:"metadata"`
}
