// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the initial corpus from the arXiv backlog",
	Long: `Build crawls the configured categories backward in time and archives the
results in the init snapshot (fetch stage), then embeds the snapshot into
the vector store (embed stage). An interrupted fetch resumes from the
oldest archived paper unless --no-resume is given.`,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
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
		_, err = comps.pipeline.BuildFetch(ctx, opts)
	case "embed":
		_, err = comps.pipeline.BuildEmbed(ctx, csvPath)
	case "all", "":
		var report pipeline.Report
		report, err = comps.pipeline.BuildFetch(ctx, opts)
		if err == nil && report.CSVPath != "" {
			_, err = comps.pipeline.BuildEmbed(ctx, report.CSVPath)
		}
	default:
		return fmt.Errorf("unknown stage %q: use fetch, embed, or all", stage)
	}
	return err
}

// crawlOptions collects the run flags shared by build and update.
func crawlOptions(cmd *cobra.Command) pipeline.Options {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	noResume, _ := cmd.Flags().GetBool("no-resume")
	return pipeline.Options{
		MaxResults: maxResults,
		BatchSize:  batchSize,
		NoResume:   noResume,
	}
}

func init() {
	buildCmd.Flags().String("stage", "all", "pipeline stage: fetch, embed, or all")
	buildCmd.Flags().Int("max-results", 0, "cap on accepted papers (0 = config value, -1 = unlimited)")
	buildCmd.Flags().Int("batch-size", 0, "page and flush size (0 = config value)")
	buildCmd.Flags().String("csv", "", "snapshot to embed (default: the init snapshot)")
	buildCmd.Flags().Bool("no-resume", false, "ignore the existing init snapshot and start over")

	rootCmd.AddCommand(buildCmd)
}
