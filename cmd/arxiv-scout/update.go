// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/pipeline"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch and embed papers published since the last checkpoint",
	Long: `Update crawls forward from the checkpoint (the newest published date in
the daily snapshots, falling back to the init snapshot), archives new
papers in a timestamped daily snapshot (fetch stage), and embeds that
snapshot into the vector store (embed stage). Run build first.`,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	stage, _ := cmd.Flags().GetString("stage")
	csvPath, _ := cmd.Flags().GetString("csv")
	opts := crawlOptions(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	comps, err := openComponents(cmd.Context(), cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx := cmd.Context()
	switch stage {
	case "fetch":
		_, err = comps.pipeline.UpdateFetch(ctx, opts)
	case "embed":
		_, err = comps.pipeline.UpdateEmbed(ctx, csvPath)
	case "all", "":
		var report pipeline.Report
		report, err = comps.pipeline.UpdateFetch(ctx, opts)
		if err == nil && report.CSVPath != "" {
			_, err = comps.pipeline.UpdateEmbed(ctx, report.CSVPath)
		}
	default:
		return fmt.Errorf("unknown stage %q: use fetch, embed, or all", stage)
	}
	return err
}

func init() {
	updateCmd.Flags().String("stage", "all", "pipeline stage: fetch, embed, or all")
	updateCmd.Flags().Int("max-results", 0, "cap on accepted papers (0 = config value, -1 = unlimited)")
	updateCmd.Flags().Int("batch-size", 0, "page and flush size (0 = config value)")
	updateCmd.Flags().String("csv", "", "daily snapshot to embed (default: the most recent one)")

	rootCmd.AddCommand(updateCmd)
}
