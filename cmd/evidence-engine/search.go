// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/websearch"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run the web search aggregator from the terminal",
	Long: `Search runs the same tiered aggregation the server uses: keyed providers
first, the open-web fan-out when they come up short, and the synthetic
fallback when everything fails. The command therefore always produces
results, regardless of which credentials are configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query is empty")
		}

		num, _ := cmd.Flags().GetInt("num")
		format, _ := cmd.Flags().GetString("format")
		enrich, _ := cmd.Flags().GetBool("enrich")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg := loadConfig()
		cfg.WebSearch.Enrich = enrich
		cfg.WebSearch.Timeout = timeoutOrDefault(timeout)

		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		agg := websearch.New(reg, cfg, log)
		out := agg.Search(context.Background(), query, num)

		return writeResults(out, format, os.Stdout)
	},
}

// writeResults renders the aggregation output in the requested format.
func writeResults(out websearch.Output, format string, w io.Writer) error {
	switch format {
	case "table":
		websearch.FormatTable(out, w)
		return nil
	case "json":
		return websearch.FormatJSON(out, w)
	case "csl":
		return websearch.FormatCSL(out, w)
	}
	return fmt.Errorf("unknown format %q (expected table, json, or csl)", format)
}

func init() {
	searchCmd.Flags().Int("num", 10, "maximum number of results to return")
	searchCmd.Flags().String("format", "table", "output format: table, json, or csl")
	searchCmd.Flags().Bool("enrich", false, "scrape result URLs for fuller titles and snippets")
	searchCmd.Flags().Duration("timeout", 0, "per-call HTTP timeout (default: config value)")

	rootCmd.AddCommand(searchCmd)
}
