// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWebCfg() types.WebSearchConfig {
	return types.WebSearchConfig{
		HTTPConfig:      types.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "test/0.1"},
		MaxResults:      10,
		MinKeyedResults: 5,
	}
}

// stubSource is a canned fan-out source.
type stubSource struct {
	name    string
	results []types.SearchResult
	err     error
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Search(_ context.Context, _ string) ([]types.SearchResult, error) {
	return s.results, s.err
}

func TestSearchNeverEmptyWithEverythingFailing(t *testing.T) {
	a := &Aggregator{
		Cfg: testWebCfg(),
		Log: testLogger(),
		Unkeyed: []Source{
			&stubSource{name: "a", err: fmt.Errorf("down")},
			&stubSource{name: "b", err: fmt.Errorf("down")},
		},
	}

	out := a.Search(context.Background(), "graphene batteries", 10)
	if len(out.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3 synthetic", len(out.Results))
	}
	if out.Used != "fallback" {
		t.Errorf("Used = %q, want fallback", out.Used)
	}
	for _, r := range out.Results {
		if !strings.Contains(r.Title, "graphene batteries") {
			t.Errorf("synthetic title %q does not contain the query", r.Title)
		}
	}
	wantScores := []float64{0.95, 0.92, 0.88}
	for i, r := range out.Results {
		if r.Score != wantScores[i] {
			t.Errorf("Results[%d].Score = %v, want %v", i, r.Score, wantScores[i])
		}
	}
}

func TestSearchFanOutIsolatesFailures(t *testing.T) {
	a := &Aggregator{
		Cfg: testWebCfg(),
		Log: testLogger(),
		Unkeyed: []Source{
			&stubSource{name: "dead", err: fmt.Errorf("connection refused")},
			&stubSource{name: "alive", results: []types.SearchResult{
				types.NewSearchResult("Survivor", "https://x.example/1", "s", 0.7),
			}},
		},
	}

	out := a.Search(context.Background(), "q", 10)
	if out.Used != "open-web" {
		t.Errorf("Used = %q, want open-web", out.Used)
	}
	if len(out.Results) != 1 || out.Results[0].Title != "Survivor" {
		t.Errorf("Results = %+v, want the surviving source's result", out.Results)
	}
}

func TestSearchBackupFillsShortfall(t *testing.T) {
	exaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[{"title":"Hybrid Hit","url":"https://h.example/1","text":"t","score":0.9}]}`)
	}))
	defer exaSrv.Close()
	braveSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"web":{"results":[{"title":"Backup Hit","url":"https://b.example/1","description":"d"}]}}`)
	}))
	defer braveSrv.Close()

	oldExa, oldBrave := exaBase, braveBase
	exaBase, braveBase = exaSrv.URL, braveSrv.URL
	defer func() { exaBase, braveBase = oldExa, oldBrave }()

	a := &Aggregator{
		Exa:   &ExaClient{Client: exaSrv.Client(), APIKey: "k"},
		Brave: &BraveClient{Client: braveSrv.Client(), APIKey: "k"},
		Cfg:   testWebCfg(),
		Log:   testLogger(),
	}

	out := a.Search(context.Background(), "q", 10)
	// One hybrid result is below the shortfall threshold of 5, so the
	// backup tier tops up. The hybrid tier still names the provenance.
	if out.Used != "exa" {
		t.Errorf("Used = %q, want exa", out.Used)
	}
	if len(out.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(out.Results))
	}
	if out.Results[0].Title != "Hybrid Hit" || out.Results[1].Title != "Backup Hit" {
		t.Errorf("Results order = %q, %q", out.Results[0].Title, out.Results[1].Title)
	}
}

func TestSearchRerankFailureKeepsOrder(t *testing.T) {
	rerankSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer rerankSrv.Close()

	oldRerank := cohereRerankBase
	cohereRerankBase = rerankSrv.URL
	defer func() { cohereRerankBase = oldRerank }()

	first := types.NewSearchResult("First", "https://x.example/1", "s", 0.6)
	second := types.NewSearchResult("Second", "https://x.example/2", "s", 0.5)

	a := &Aggregator{
		Reranker: &CohereReranker{Client: rerankSrv.Client(), APIKey: "k"},
		Cfg:      testWebCfg(),
		Log:      testLogger(),
		Unkeyed: []Source{
			&stubSource{name: "s", results: []types.SearchResult{first, second}},
		},
	}

	out := a.Search(context.Background(), "q", 10)
	if len(out.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(out.Results))
	}
	if out.Results[0].Title != "First" || out.Results[1].Title != "Second" {
		t.Errorf("rerank failure must keep the original order, got %q, %q",
			out.Results[0].Title, out.Results[1].Title)
	}
}

func TestSearchTruncatesToNumResults(t *testing.T) {
	var many []types.SearchResult
	for i := 0; i < 8; i++ {
		many = append(many, types.NewSearchResult(
			fmt.Sprintf("R%d", i), fmt.Sprintf("https://x.example/%d", i), "s", 0.5))
	}

	a := &Aggregator{
		Cfg:     testWebCfg(),
		Log:     testLogger(),
		Unkeyed: []Source{&stubSource{name: "s", results: many}},
	}

	out := a.Search(context.Background(), "q", 3)
	if len(out.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(out.Results))
	}
}

func TestDedupe(t *testing.T) {
	a := types.NewSearchResult("T", "https://x.example/1", "first", 0.9)
	dup := types.NewSearchResult("T", "https://x.example/1", "second", 0.2)
	differentURL := types.NewSearchResult("T", "https://x.example/2", "s", 0.5)
	differentCase := types.NewSearchResult("t", "https://x.example/1", "s", 0.5)

	got, removed := Dedupe([]types.SearchResult{a, dup, differentURL, differentCase})
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (key is exact title+url, case-sensitive)", len(got))
	}
	// First occurrence wins.
	if got[0].Snippet != "first" {
		t.Errorf("kept snippet = %q, want the first occurrence", got[0].Snippet)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	in := []types.SearchResult{
		types.NewSearchResult("A", "https://x.example/a", "s", 0.9),
		types.NewSearchResult("A", "https://x.example/a", "s", 0.8),
		types.NewSearchResult("B", "https://x.example/b", "s", 0.7),
	}

	once, _ := Dedupe(in)
	twice, removed := Dedupe(once)
	if removed != 0 {
		t.Errorf("second pass removed %d, want 0", removed)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedup not idempotent: %+v vs %+v", once, twice)
	}
}

func TestSyntheticResultsDomains(t *testing.T) {
	got := SyntheticResults("quantum computing")
	for _, r := range got {
		if r.Domain == "" {
			t.Errorf("synthetic result %q has empty domain", r.Title)
		}
		if r.URL == "" || !strings.Contains(r.URL, "quantum+computing") {
			t.Errorf("synthetic URL %q does not embed the escaped query", r.URL)
		}
	}
}
