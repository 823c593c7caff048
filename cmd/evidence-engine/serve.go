// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evidence-engine HTTP server",
	Long: `Serve exposes the research pipeline over HTTP: POST /research runs the
full search-and-generation pipeline, GET /status reports provider
availability, and the /openalex, /crossref, /arxiv, and /europepmc works
endpoints proxy the bibliographic providers with normalized paging.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = os.Getenv("PORT")
		}
		if port == "" {
			port = cfg.Server.Port
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		h := server.NewHandler(reg, cfg, log)
		r := server.NewRouter(h)

		if _, ok := reg.GenerationProvider(); !ok {
			log.Warn("no generation credential configured; POST /research will fail until one is provided")
		}
		log.Info("listening", "port", port)
		if err := r.Run(":" + port); err != nil {
			return fmt.Errorf("running HTTP server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "TCP port to listen on (default: PORT env or config)")

	rootCmd.AddCommand(serveCmd)
}
