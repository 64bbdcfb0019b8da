// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the arxiv-scout CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/arxiv"
	"github.com/pdiddy/arxiv-scout/internal/config"
	"github.com/pdiddy/arxiv-scout/internal/embed"
	"github.com/pdiddy/arxiv-scout/internal/ledger"
	"github.com/pdiddy/arxiv-scout/internal/pipeline"
	"github.com/pdiddy/arxiv-scout/internal/secrets"
	"github.com/pdiddy/arxiv-scout/internal/snapshot"
	"github.com/pdiddy/arxiv-scout/internal/store"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the arxiv-scout CLI.
var rootCmd = &cobra.Command{
	Use:   "arxiv-scout",
	Short: "Incremental arXiv harvester with dual-field semantic search",
	Long: `arxiv-scout maintains a vector index of arXiv papers. It crawls the
arXiv catalog backward in time from a checkpoint, deduplicates against the
papers already stored, embeds titles and abstracts separately, and answers
natural-language queries by fusing both similarity signals.

Build the initial corpus with build, keep it fresh with update, query it
with search, and expose everything over HTTP with serve.`,
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
	rootCmd.PersistentFlags().String("config", "", "config file (default: arxiv-scout.yaml in . or ~/.config/arxiv-scout)")
}

// loadConfig reads the configuration for a command, layering secrets on top.
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	secrets.Apply(cfg, loadedSecrets)
	return cfg, nil
}

// openStore connects to Milvus with the configured embedder.
func openStore(ctx context.Context, cfg *types.Config) (*store.Milvus, error) {
	return store.Connect(ctx, cfg.Store, embed.NewClient(cfg.Embedding))
}

// components bundles the wired pipeline with the resources it owns.
type components struct {
	store    *store.Milvus
	snaps    *snapshot.Manager
	ledger   *ledger.Ledger
	pipeline *pipeline.Pipeline
}

func (c *components) Close() {
	c.ledger.Close()
	c.store.Close()
}

// openComponents wires store, snapshots, ledger, and fetcher into a
// pipeline. progress receives run output.
func openComponents(ctx context.Context, cfg *types.Config, progress io.Writer) (*components, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	snaps, err := snapshot.NewManager(cfg.Snapshots)
	if err != nil {
		st.Close()
		return nil, err
	}
	led, err := ledger.Open(cfg.Ledger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &components{
		store:    st,
		snaps:    snaps,
		ledger:   led,
		pipeline: pipeline.New(*cfg, st, snaps, arxiv.NewClient(cfg.Arxiv), led, progress),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
