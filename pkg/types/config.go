package types

import "time"

// HTTPConfig holds shared HTTP settings used by every component that
// makes network requests.
type HTTPConfig struct {
	// Timeout is the per-call HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// WebSearchConfig holds settings for the web search aggregator.
type WebSearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the default number of results to return (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinKeyedResults is the threshold below which the backup keyed
	// provider is consulted for the shortfall (default 5).
	MinKeyedResults int `json:"min_keyed_results" yaml:"min_keyed_results"`

	// Enrich controls best-effort content scraping of result URLs.
	Enrich bool `json:"enrich" yaml:"enrich"`

	// EnrichTimeout bounds each enrichment fetch (default 5s). A slow
	// scrape is skipped, never allowed to hold up the response.
	EnrichTimeout time.Duration `json:"enrich_timeout" yaml:"enrich_timeout"`
}

// ScholarConfig holds settings for the bibliographic provider clients.
type ScholarConfig struct {
	HTTPConfig `yaml:",inline"`

	// PerPage is the default page size when the caller does not set one
	// (default 20; each provider clamps to its own maximum).
	PerPage int `json:"per_page" yaml:"per_page"`
}

// GenerationConfig holds settings for the generation stages.
type GenerationConfig struct {
	// GeminiModel is the Google model identifier.
	GeminiModel string `json:"gemini_model" yaml:"gemini_model"`

	// GroqModel is the Groq (OpenAI-compatible) model identifier.
	GroqModel string `json:"groq_model" yaml:"groq_model"`

	// MaxAttempts is the bounded attempt count per stage (fixed at 3
	// unless overridden for tests).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	// Port is the TCP port the server listens on (default 8080).
	Port string `json:"port" yaml:"port"`
}

// Config groups all component configurations.
type Config struct {
	WebSearch  WebSearchConfig  `json:"web_search" yaml:"web_search"`
	Scholar    ScholarConfig    `json:"scholar" yaml:"scholar"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// Default returns the configuration used when no file or environment
// overrides are present. Values are clamped, not rejected, elsewhere.
func Default() Config {
	return Config{
		WebSearch: WebSearchConfig{
			HTTPConfig:      HTTPConfig{Timeout: 15 * time.Second, UserAgent: "evidence-engine/0.1"},
			MaxResults:      10,
			MinKeyedResults: 5,
			Enrich:          false,
			EnrichTimeout:   5 * time.Second,
		},
		Scholar: ScholarConfig{
			HTTPConfig: HTTPConfig{Timeout: 15 * time.Second, UserAgent: "evidence-engine/0.1"},
			PerPage:    20,
		},
		Generation: GenerationConfig{
			GeminiModel: "gemini-2.0-flash",
			GroqModel:   "llama-3.3-70b-versatile",
			MaxAttempts: 3,
		},
		Server: ServerConfig{Port: "8080"},
	}
}
