// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// stubModel replays canned responses and errors in call order.
type stubModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	var content string
	if i < len(m.responses) {
		content = m.responses[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}, nil
}

func (m *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func testGenerator(m llms.Model) *Generator {
	return &Generator{
		Model:     m,
		ModelName: "stub",
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// cancelledContext returns a context that is already done, so a failed
// first attempt moves straight to the fallback instead of sleeping.
func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func testSources() []types.SearchResult {
	s := types.NewSearchResult("Graphene Anodes", "https://journal.example/1", "Anode capacity studies.", 0.9)
	s.Author = "A. Volta"
	s.PublishedDate = "2023-05-01"
	return []types.SearchResult{s}
}

func TestSummarySuccess(t *testing.T) {
	want := strings.Repeat("Graphene anodes improve capacity. ", 5)
	g := testGenerator(&stubModel{responses: []string{want}})

	got := g.Summary(context.Background(), "graphene", "", testSources())
	if got != strings.TrimSpace(want) {
		t.Errorf("Summary() = %q", got)
	}
}

func TestSummaryTooShortUsesFallback(t *testing.T) {
	g := testGenerator(&stubModel{responses: []string{"Too short."}})

	got := g.Summary(cancelledContext(), "graphene batteries", "", testSources())
	if !strings.Contains(got, "graphene batteries") {
		t.Errorf("fallback summary %q does not mention the query", got)
	}
}

func TestCitationsExtractsProseWrappedArray(t *testing.T) {
	response := `Here are the citations you asked for:
[{"title": "Graphene Anodes", "authors": ["A. Volta", "L. Galvani"], "year": 2023,
  "source": "J. Energy", "url": "https://journal.example/1",
  "formatted": "Volta & Galvani (2023). Graphene Anodes."}]
Hope this helps!`
	g := testGenerator(&stubModel{responses: []string{response}})

	got := g.Citations(context.Background(), "graphene", types.StyleAPA, testSources())
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.Authors != "A. Volta, L. Galvani" {
		t.Errorf("Authors = %q, want array coerced to joined string", c.Authors)
	}
	if c.Year != "2023" {
		t.Errorf("Year = %q, want number coerced to string", c.Year)
	}
	if c.Formatted == "" {
		t.Errorf("Formatted is empty")
	}
}

func TestCitationsDefaultsMissingFields(t *testing.T) {
	// The provider returned a bare object; every field must still be
	// populated, drawn from the matching source where possible.
	g := testGenerator(&stubModel{responses: []string{`[{}]`}})

	got := g.Citations(context.Background(), "graphene", types.StyleAPA, testSources())
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.Title != "Graphene Anodes" || c.Authors != "A. Volta" || c.Year != "2023" {
		t.Errorf("source-derived defaults missing: %+v", c)
	}
	if c.Source != "journal.example" || c.URL != "https://journal.example/1" {
		t.Errorf("Source/URL = %q/%q", c.Source, c.URL)
	}
	if c.Formatted == "" {
		t.Errorf("Formatted is empty")
	}
}

func TestCitationsMalformedFallsBack(t *testing.T) {
	g := testGenerator(&stubModel{responses: []string{"no array here"}})

	got := g.Citations(cancelledContext(), "graphene", types.StyleAPA, testSources())
	if len(got) != 1 {
		t.Fatalf("fallback len = %d, want one per source", len(got))
	}
	if got[0].Title != "Graphene Anodes" || got[0].Year != "2023" {
		t.Errorf("fallback citation = %+v", got[0])
	}
}

func TestInsightsFiltersShortElements(t *testing.T) {
	response := `["ok", "Graphene anodes show higher capacity than graphite.", 42,
	              "Cycling stability remains the main open problem."]`
	g := testGenerator(&stubModel{responses: []string{response}})

	got := g.Insights(context.Background(), "graphene", "summary", testSources())
	want := []string{
		"Graphene anodes show higher capacity than graphite.",
		"Cycling stability remains the main open problem.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Insights() = %v, want short and non-string elements dropped", got)
	}
}

func TestInsightsAllFilteredFallsBack(t *testing.T) {
	summary := "Graphene anodes outperform graphite in capacity. Long-term cycling remains an open question."
	g := testGenerator(&stubModel{responses: []string{`["a", "b"]`}})

	got := g.Insights(cancelledContext(), "graphene", summary, testSources())
	if len(got) != 2 {
		t.Fatalf("fallback insights = %v, want two sentences", got)
	}
	if !strings.HasSuffix(got[0], ".") {
		t.Errorf("sentence %q lost its period", got[0])
	}
}

func TestRelatedTopicsFallback(t *testing.T) {
	g := testGenerator(&stubModel{errs: []error{fmt.Errorf("provider down")}})

	got := g.RelatedTopics(cancelledContext(), "perovskite cells")
	if len(got) != 5 {
		t.Fatalf("fallback topics = %v", got)
	}
	for _, topic := range got {
		if !strings.Contains(topic, "perovskite cells") {
			t.Errorf("topic %q does not mention the query", topic)
		}
	}
}

func TestCoerceYear(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"2021"`, "2021"},
		{`2021`, "2021"},
		{`null`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := coerceYear([]byte(tt.raw)); got != tt.want {
			t.Errorf("coerceYear(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatCitationStyles(t *testing.T) {
	c := types.Citation{
		Title: "Graphene Anodes", Authors: "A. Volta", Year: "2023",
		Source: "J. Energy", URL: "https://journal.example/1",
	}

	apa := FormatCitation(types.StyleAPA, c)
	if !strings.HasPrefix(apa, "A. Volta (2023).") {
		t.Errorf("APA = %q", apa)
	}
	mla := FormatCitation(types.StyleMLA, c)
	if !strings.Contains(mla, `"Graphene Anodes."`) {
		t.Errorf("MLA = %q", mla)
	}
	ieee := FormatCitation(types.StyleIEEE, c)
	if !strings.Contains(ieee, "[Online]. Available:") {
		t.Errorf("IEEE = %q", ieee)
	}
	// Unknown styles render as APA.
	if FormatCitation(types.CitationStyle("chicago"), c) != apa {
		t.Errorf("unknown style did not default to APA")
	}
}
