// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/evidence-engine/internal/registry"
	"github.com/pdiddy/evidence-engine/internal/scholar"
	"github.com/pdiddy/evidence-engine/internal/websearch"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// stubTransport serves a canned body for every request, regardless of
// host. It lets handler tests exercise provider clients without
// touching their endpoint URLs.
type stubTransport struct {
	status int
	body   string
}

func (t stubTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: t.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func stubClient(status int, body string) *http.Client {
	return &http.Client{Transport: stubTransport{status: status, body: body}}
}

// stubModel replays canned responses in call order.
type stubModel struct {
	responses []string
	calls     int
}

func (m *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	m.calls++
	var content string
	if i < len(m.responses) {
		content = m.responses[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}, nil
}

func (m *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func testHandler(reg *registry.Registry) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := types.Default()
	return &Handler{
		Registry: reg,
		Cfg:      cfg,
		// No keyed tiers, no fan-out sources: search lands on the
		// synthetic fallback unless a test installs providers.
		Search:    &websearch.Aggregator{Cfg: cfg.WebSearch, Log: log},
		OpenAlex:  &scholar.OpenAlexClient{Client: http.DefaultClient},
		Crossref:  &scholar.CrossrefClient{Client: http.DefaultClient},
		Arxiv:     &scholar.ArxivClient{Client: http.DefaultClient},
		EuropePMC: &scholar.EuropePMCClient{Client: http.DefaultClient},
		Log:       log,
	}
}

func doRequest(h *Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	r := NewRouter(h)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	h := testHandler(registry.NewStatic(map[registry.ProviderID]string{
		registry.Gemini: "key",
		registry.Exa:    "key",
	}))

	w := doRequest(h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap["gemini"])
	assert.False(t, snap["groq"])
	assert.True(t, snap["exa"])
	assert.False(t, snap["brave"])
	// Unkeyed public providers are always reported available.
	assert.True(t, snap["arxiv"])
	assert.True(t, snap["wikipedia"])
}

func TestWorksEndpointsRequireQuery(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))

	for _, path := range []string{
		"/openalex/works",
		"/crossref/works",
		"/arxiv/works",
		"/europepmc/works",
	} {
		w := doRequest(h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "missing required query parameter q", path)
	}
}

func TestAboutnessRequiresInput(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))

	w := doRequest(h, http.MethodGet, "/openalex/aboutness", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one of title, abstract, or fulltext")
}

func TestOpenAlexWorksEndpoint(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))
	h.OpenAlex = &scholar.OpenAlexClient{Client: stubClient(http.StatusOK, `{
		"meta": {"count": 1, "next_cursor": "tok"},
		"results": [{"id": "https://openalex.org/W1", "title": "T", "doi": "https://doi.org/10.1/x"}]
	}`)}

	w := doRequest(h, http.MethodGet, "/openalex/works?q=graphene&perPage=300", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got types.PagedPapers
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Papers, 1)
	assert.Equal(t, "doi:10.1/x", got.Papers[0].ID)
	require.NotNil(t, got.NextCursor)
	assert.Equal(t, "tok", *got.NextCursor)
}

func TestArxivWorksEndpointComputesNextCursor(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <opensearch:totalResults>12</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Quantum Error Correction</title>
    <summary>We survey quantum error correction.</summary>
    <published>2023-01-17T00:00:00Z</published>
    <author><name>Alice Chen</name></author>
  </entry>
</feed>`
	h := testHandler(registry.NewStatic(nil))
	h.Arxiv = &scholar.ArxivClient{Client: stubClient(http.StatusOK, feed)}

	w := doRequest(h, http.MethodGet, "/arxiv/works?q=quantum&start=0&maxResults=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got types.PagedPapers
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 12, got.TotalCount)
	require.NotNil(t, got.NextCursor)
	assert.Equal(t, "5", *got.NextCursor)
}

func TestWorksUpstreamFailureIsBadGateway(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))
	h.Crossref = &scholar.CrossrefClient{Client: stubClient(http.StatusInternalServerError, "")}

	w := doRequest(h, http.MethodGet, "/crossref/works?q=x", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestResearchWithoutGenerationCredential(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))
	h.newModel = func(_ context.Context, reg *registry.Registry, _ types.GenerationConfig) (llms.Model, string, error) {
		if _, ok := reg.GenerationProvider(); !ok {
			return nil, "", fmt.Errorf("no generation provider credential configured")
		}
		return &stubModel{}, "stub", nil
	}

	body := []byte(`{"query": "graphene batteries"}`)
	w := doRequest(h, http.MethodPost, "/research", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "generation failed: no generation provider credential configured")
}

func TestResearchMissingQuery(t *testing.T) {
	h := testHandler(registry.NewStatic(nil))

	w := doRequest(h, http.MethodPost, "/research", []byte(`{"query": "  "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required field query")
}

func TestResearchAllSearchProvidersDown(t *testing.T) {
	// One canned response per stage, in handler call order: summary,
	// citations, insights, related topics.
	model := &stubModel{responses: []string{
		strings.Repeat("Graphene batteries promise high capacity anodes. ", 3),
		`[{"title": "Graphene Batteries Review", "authors": "K. Novoselov", "year": "2023",
		   "source": "scholar.google.com", "url": "https://scholar.google.com/x",
		   "formatted": "K. Novoselov (2023). Graphene Batteries Review."}]`,
		`["Graphene anodes show substantially higher theoretical capacity than graphite."]`,
		`["Silicon anodes", "Solid-state electrolytes"]`,
	}}

	h := testHandler(registry.NewStatic(map[registry.ProviderID]string{registry.Gemini: "key"}))
	h.newModel = func(_ context.Context, _ *registry.Registry, _ types.GenerationConfig) (llms.Model, string, error) {
		return model, "gemini", nil
	}

	body := []byte(`{"query": "graphene batteries", "citationStyle": "apa"}`)
	w := doRequest(h, http.MethodPost, "/research", body)
	require.Equal(t, http.StatusOK, w.Code)

	var got types.ResearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	assert.Equal(t, "fallback", got.Metadata.UsedSearch)
	assert.Equal(t, "gemini", got.Metadata.UsedModel)
	assert.NotEmpty(t, got.Metadata.RequestID)
	assert.Equal(t, 3, got.Metadata.SourceCount)

	require.Len(t, got.Sources, 3)
	for _, s := range got.Sources {
		assert.Contains(t, s.Title, "graphene batteries")
	}

	assert.NotEmpty(t, got.Summary)
	require.NotEmpty(t, got.Citations)
	for _, c := range got.Citations {
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Authors)
		assert.NotEmpty(t, c.Year)
		assert.NotEmpty(t, c.Source)
		assert.NotEmpty(t, c.URL)
		assert.NotEmpty(t, c.Formatted)
	}
	assert.NotEmpty(t, got.KeyInsights)
	assert.NotEmpty(t, got.RelatedTopics)
}

func TestNormalizeStyle(t *testing.T) {
	assert.Equal(t, types.StyleMLA, normalizeStyle(types.StyleMLA))
	assert.Equal(t, types.StyleAPA, normalizeStyle(types.CitationStyle("")))
	assert.Equal(t, types.StyleAPA, normalizeStyle(types.CitationStyle("chicago")))
}
