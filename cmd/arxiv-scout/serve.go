// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/api"
	"github.com/pdiddy/arxiv-scout/internal/logger"
	"github.com/pdiddy/arxiv-scout/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the harvester over HTTP: search, stats, incremental
updates, and paper management. The server runs until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.API.Port = port
	}

	log := logger.New(cfg.Logging, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := openComponents(ctx, cfg, io.Discard)
	if err != nil {
		return err
	}
	defer comps.Close()

	searcher := search.NewSearcher(comps.store, cfg.Search, io.Discard)
	srv := api.New(*cfg, comps.pipeline, searcher, log)
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("host", "", "bind address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
