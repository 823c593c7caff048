// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/registry"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the evidence-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Multi-provider research evidence aggregation",
	Long: `evidence-engine aggregates research evidence across web search,
bibliographic, and text-generation providers. Each provider tier degrades
gracefully: missing credentials narrow the provider set instead of failing,
and exhausted retries produce deterministic fallbacks instead of errors.

Run the HTTP surface with serve, or query the search aggregator directly
with search.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	viper.SetEnvPrefix("EVIDENCE_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig applies config-file overrides on top of the defaults.
func loadConfig() types.Config {
	cfg := types.Default()

	if v := viper.GetDuration("http.timeout"); v > 0 {
		cfg.WebSearch.Timeout = v
		cfg.Scholar.Timeout = v
	}
	if v := viper.GetString("http.user_agent"); v != "" {
		cfg.WebSearch.UserAgent = v
		cfg.Scholar.UserAgent = v
	}
	if v := viper.GetInt("web_search.max_results"); v > 0 {
		cfg.WebSearch.MaxResults = v
	}
	if viper.IsSet("web_search.enrich") {
		cfg.WebSearch.Enrich = viper.GetBool("web_search.enrich")
	}
	if v := viper.GetDuration("web_search.enrich_timeout"); v > 0 {
		cfg.WebSearch.EnrichTimeout = v
	}
	if v := viper.GetInt("scholar.per_page"); v > 0 {
		cfg.Scholar.PerPage = v
	}
	if v := viper.GetString("generation.gemini_model"); v != "" {
		cfg.Generation.GeminiModel = v
	}
	if v := viper.GetString("generation.groq_model"); v != "" {
		cfg.Generation.GroqModel = v
	}
	if v := viper.GetString("server.port"); v != "" {
		cfg.Server.Port = v
	}
	return cfg
}

// loadRegistry builds the credential registry from the environment
// merged with the loaded secrets.
func loadRegistry() (*registry.Registry, error) {
	return registry.Load(loadedSecrets)
}

// timeoutOrDefault keeps flag-driven timeouts strictly positive.
func timeoutOrDefault(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 15 * time.Second
}

func main() {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
