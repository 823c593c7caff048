// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate runs the text-generation stages of the research
// pipeline against a polymorphic provider. Every stage is written once
// against the llms.Model interface; the registry decides whether the
// concrete provider behind it is Gemini or Groq. Stage failures never
// escape: each stage carries a deterministic fallback.
package generate

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/evidence-engine/internal/registry"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// NewModel builds the preferred available generation model. The second
// return names the provider for response metadata. When no credential
// exists the error is fatal for the request: it is the one condition
// the retry discipline does not absorb.
func NewModel(ctx context.Context, reg *registry.Registry, cfg types.GenerationConfig) (llms.Model, string, error) {
	id, ok := reg.GenerationProvider()
	if !ok {
		return nil, "", fmt.Errorf("no generation provider credential configured")
	}

	switch id {
	case registry.Gemini:
		m, err := googleai.New(ctx,
			googleai.WithAPIKey(reg.Key(id)),
			googleai.WithDefaultModel(cfg.GeminiModel))
		if err != nil {
			return nil, "", fmt.Errorf("initializing Gemini client: %w", err)
		}
		return m, string(id), nil
	case registry.Groq:
		m, err := openai.New(
			openai.WithToken(reg.Key(id)),
			openai.WithModel(cfg.GroqModel),
			openai.WithBaseURL(groqBaseURL))
		if err != nil {
			return nil, "", fmt.Errorf("initializing Groq client: %w", err)
		}
		return m, string(id), nil
	}
	return nil, "", fmt.Errorf("unknown generation provider %q", id)
}
