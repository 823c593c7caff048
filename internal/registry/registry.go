// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry decides which external providers the pipeline may
// use. The registry is an explicit value built once at process start
// from credential presence (never validity) and passed to every
// component that needs it; it is immutable afterwards, so concurrent
// reads need no synchronization.
package registry

import (
	"fmt"

	env "github.com/netflix/go-env"
)

// ProviderID names an external provider that requires a credential.
type ProviderID string

const (
	// Generation providers.
	Gemini ProviderID = "gemini"
	Groq   ProviderID = "groq"

	// Web search and reranking providers.
	Exa    ProviderID = "exa"
	Brave  ProviderID = "brave"
	Cohere ProviderID = "cohere"

	// Bibliographic credentials. Crossref Plus is a keyed tier of the
	// public metadata API; the OpenAlex mailto address admits requests
	// to the polite pool.
	CrossrefPlus   ProviderID = "crossref_plus"
	OpenAlexPolite ProviderID = "openalex_polite"
)

// generationOrder is the fixed, total preference order for generation.
// An empty walk of this list is a fatal condition for /research.
var generationOrder = []ProviderID{Gemini, Groq}

// searchOrder is the fixed, total preference order for keyed search.
// When no entry is available the aggregator falls back to the unkeyed
// open-web chain.
var searchOrder = []ProviderID{Exa, Brave, CrossrefPlus, OpenAlexPolite}

// unkeyedProviders are public endpoints that need no credential and are
// therefore always reported available.
var unkeyedProviders = []string{"openalex", "crossref", "arxiv", "europepmc", "duckduckgo", "wikipedia"}

// environment mirrors the credential environment variables.
type environment struct {
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GroqAPIKey        string `env:"GROQ_API_KEY"`
	ExaAPIKey         string `env:"EXA_API_KEY"`
	BraveAPIKey       string `env:"BRAVE_API_KEY"`
	CohereAPIKey      string `env:"COHERE_API_KEY"`
	CrossrefPlusToken string `env:"CROSSREF_PLUS_TOKEN"`
	OpenAlexMailto    string `env:"OPENALEX_MAILTO"`
}

// secretFiles maps .secrets/ file names to provider IDs. Environment
// variables win over secret files for the same provider.
var secretFiles = map[string]ProviderID{
	"gemini-api-key":      Gemini,
	"groq-api-key":        Groq,
	"exa-api-key":         Exa,
	"brave-api-key":       Brave,
	"cohere-api-key":      Cohere,
	"crossref-plus-token": CrossrefPlus,
	"openalex-email":      OpenAlexPolite,
}

// Registry is the process-wide credential snapshot.
type Registry struct {
	keys map[ProviderID]string
}

// Load builds a Registry from the process environment merged with a
// secrets map (as returned by secrets.Load). It reads configuration
// exactly once; the result never mutates.
func Load(secrets map[string]string) (*Registry, error) {
	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("parsing credential environment: %w", err)
	}

	keys := map[ProviderID]string{}
	for file, id := range secretFiles {
		if v := secrets[file]; v != "" {
			keys[id] = v
		}
	}
	for id, v := range map[ProviderID]string{
		Gemini:         e.GeminiAPIKey,
		Groq:           e.GroqAPIKey,
		Exa:            e.ExaAPIKey,
		Brave:          e.BraveAPIKey,
		Cohere:         e.CohereAPIKey,
		CrossrefPlus:   e.CrossrefPlusToken,
		OpenAlexPolite: e.OpenAlexMailto,
	} {
		if v != "" {
			keys[id] = v
		}
	}

	return &Registry{keys: keys}, nil
}

// NewStatic builds a Registry from an explicit credential map. Tests and
// callers that manage their own configuration use this constructor.
func NewStatic(keys map[ProviderID]string) *Registry {
	copied := make(map[ProviderID]string, len(keys))
	for id, v := range keys {
		if v != "" {
			copied[id] = v
		}
	}
	return &Registry{keys: copied}
}

// IsAvailable reports whether a credential for the provider is present.
func (r *Registry) IsAvailable(id ProviderID) bool {
	return r.keys[id] != ""
}

// Key returns the credential for a provider, empty when absent.
func (r *Registry) Key(id ProviderID) string {
	return r.keys[id]
}

// GenerationProvider returns the preferred available generation
// provider. ok is false when none is configured — a fatal condition for
// the request, surfaced to the caller rather than retried.
func (r *Registry) GenerationProvider() (ProviderID, bool) {
	for _, id := range generationOrder {
		if r.IsAvailable(id) {
			return id, true
		}
	}
	return "", false
}

// SearchProvider returns the preferred available keyed search provider.
// ok is false when no keyed search exists; the aggregator then goes
// straight to its open-web fallback chain.
func (r *Registry) SearchProvider() (ProviderID, bool) {
	for _, id := range searchOrder {
		if r.IsAvailable(id) {
			return id, true
		}
	}
	return "", false
}

// Snapshot returns availability for every keyed provider plus
// always-true entries for the unkeyed public ones. This is the /status
// response body.
func (r *Registry) Snapshot() map[string]bool {
	snap := make(map[string]bool, len(generationOrder)+len(searchOrder)+len(unkeyedProviders))
	for _, id := range generationOrder {
		snap[string(id)] = r.IsAvailable(id)
	}
	for _, id := range searchOrder {
		snap[string(id)] = r.IsAvailable(id)
	}
	snap[string(Cohere)] = r.IsAvailable(Cohere)
	for _, name := range unkeyedProviders {
		snap[name] = true
	}
	return snap
}
