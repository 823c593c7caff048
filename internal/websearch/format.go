// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-25s  %-6s  %s\n",
		"Rank", "Title", "Domain", "Score", "Published")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		domain := r.Domain
		if len(domain) > 25 {
			domain = domain[:22] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-25s  %-6.2f  %s\n",
			i+1, title, domain, r.Score, r.PublishedDate)
	}

	fmt.Fprintf(w, "\n%d results via %s", len(out.Results), out.Used)
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

// CSLItem represents a bibliographic entry in CSL (Citation Style
// Language) format. Field names follow the CSL-YAML schema so output is
// consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	URL      string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes search results as a CSL-YAML list to w.
func FormatCSL(out Output, w io.Writer) error {
	items := make([]CSLItem, len(out.Results))
	for i, r := range out.Results {
		items[i] = toCSLItem(r, i)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a SearchResult to a CSLItem. Web results have no
// stable identifier, so the id is the domain plus the result's rank.
func toCSLItem(r types.SearchResult, rank int) CSLItem {
	item := CSLItem{
		ID:       cslID(r, rank),
		Type:     "webpage",
		Title:    r.Title,
		Abstract: r.Snippet,
		URL:      r.URL,
	}

	if r.Author != "" {
		item.Author = []CSLName{parseAuthorName(r.Author)}
	}
	if parts := dateParts(r.PublishedDate); len(parts) > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{parts}}
	}
	return item
}

func cslID(r types.SearchResult, rank int) string {
	if r.Domain != "" {
		return fmt.Sprintf("%s-%d", strings.ReplaceAll(r.Domain, ".", "-"), rank+1)
	}
	return fmt.Sprintf("result-%d", rank+1)
}

// parseAuthorName splits a full name on the last space: everything
// before is given, the last token is family. Single-token names use the
// literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

// dateParts parses up to year-month-day from an ISO-ish date string.
func dateParts(date string) []int {
	var parts []int
	for _, field := range strings.SplitN(date, "-", 3) {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n == 0 {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
