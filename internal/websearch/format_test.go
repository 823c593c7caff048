// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func formatOutput() Output {
	r := types.NewSearchResult("Graphene Anodes", "https://journal.example/1", "Capacity studies.", 0.91)
	r.Author = "Ada Lovelace"
	r.PublishedDate = "2023-05-01"
	return Output{Results: []types.SearchResult{r}, Used: "exa", DupsRemoved: 2}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(formatOutput(), &buf)

	got := buf.String()
	for _, want := range []string{"Graphene Anodes", "journal.example", "0.91", "1 results via exa", "2 duplicates removed"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(Output{}, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatJSON(formatOutput(), &buf); err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	var got []types.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Graphene Anodes" {
		t.Errorf("round-tripped results = %+v", got)
	}
}

func TestFormatCSL(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatCSL(formatOutput(), &buf); err != nil {
		t.Fatalf("FormatCSL() error = %v", err)
	}

	var items []CSLItem
	if err := yaml.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	item := items[0]
	if item.ID != "journal-example-1" || item.Type != "webpage" {
		t.Errorf("ID/Type = %q/%q", item.ID, item.Type)
	}
	if len(item.Author) != 1 || item.Author[0].Family != "Lovelace" || item.Author[0].Given != "Ada" {
		t.Errorf("Author = %+v", item.Author)
	}
	if item.Issued == nil || !reflect.DeepEqual(item.Issued.DateParts, [][]int{{2023, 5, 1}}) {
		t.Errorf("Issued = %+v", item.Issued)
	}
}

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Ada Lovelace", CSLName{Given: "Ada", Family: "Lovelace"}},
		{"Jean van der Berg", CSLName{Given: "Jean van der", Family: "Berg"}},
		{"Aristotle", CSLName{Literal: "Aristotle"}},
		{"", CSLName{}},
	}
	for _, tt := range tests {
		if got := parseAuthorName(tt.in); got != tt.want {
			t.Errorf("parseAuthorName(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDateParts(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"2023-05-01", []int{2023, 5, 1}},
		{"2023-05", []int{2023, 5}},
		{"2023", []int{2023}},
		{"", nil},
		{"n.d.", nil},
	}
	for _, tt := range tests {
		if got := dateParts(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("dateParts(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
