// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// PaperSource identifies the bibliographic provider a Paper came from.
type PaperSource string

const (
	SourceOpenAlex  PaperSource = "openalex"
	SourceCrossref  PaperSource = "crossref"
	SourceArxiv     PaperSource = "arxiv"
	SourceEuropePMC PaperSource = "europepmc"
)

// Concept is a topic or field-of-study annotation attached to a paper.
type Concept struct {
	ID    string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Paper is a normalized bibliographic record. Normalizers build Papers
// deterministically from provider payloads: the same payload always
// yields the same Paper, byte for byte.
type Paper struct {
	// ID is globally unique per provider. DOI-based IDs ("doi:...") are
	// preferred and identical across providers that share the DOI;
	// otherwise the ID is a provider-prefixed fallback.
	ID string `json:"id" yaml:"id"`

	// DOI is the bare DOI (no https://doi.org/ prefix), if known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Title is the work title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the plain-text abstract, if available.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// PublishedAt is the full publication date string, if known.
	PublishedAt string `json:"publishedAt,omitempty" yaml:"published_at,omitempty"`

	// Venue is the journal, conference, or repository name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// URL is the landing page for the work.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct full-text PDF link, if one exists.
	PDFURL string `json:"pdfUrl,omitempty" yaml:"pdf_url,omitempty"`

	// Source is the provider that produced this record.
	Source PaperSource `json:"source" yaml:"source"`

	// OpenAccess reports whether the work is openly accessible.
	OpenAccess bool `json:"openAccess,omitempty" yaml:"open_access,omitempty"`

	// CitationsCount is the number of works citing this one.
	CitationsCount int `json:"citationsCount,omitempty" yaml:"citations_count,omitempty"`

	// ReferencedByCount is the provider's referenced-by tally, where the
	// provider distinguishes it from CitationsCount.
	ReferencedByCount int `json:"referencedByCount,omitempty" yaml:"referenced_by_count,omitempty"`

	// Concepts lists topic annotations, if the provider supplies them.
	Concepts []Concept `json:"concepts,omitempty" yaml:"concepts,omitempty"`
}

// PagedPapers is one page of normalized results plus the cursor for the
// next page. A nil NextCursor marks the terminal page. Cursors are
// provider-opaque: callers pass them back verbatim and never parse them.
type PagedPapers struct {
	Papers     []Paper `json:"papers" yaml:"papers"`
	NextCursor *string `json:"nextCursor" yaml:"next_cursor"`
	TotalCount int     `json:"totalCount,omitempty" yaml:"total_count,omitempty"`
}

// PaperID derives the canonical Paper ID for a record. A DOI wins so
// that providers sharing a DOI converge on one ID; otherwise the
// provider's native identifier is prefixed with the source name.
func PaperID(source PaperSource, doi, nativeID string) string {
	if doi != "" {
		return "doi:" + strings.ToLower(strings.TrimSpace(doi))
	}
	return fmt.Sprintf("%s:%s", source, nativeID)
}

// BareDOI strips the https://doi.org/ prefix variants from a DOI URL.
func BareDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}
