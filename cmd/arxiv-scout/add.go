// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/pipeline"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add papers to the store from a JSON file",
	Long: `Add reads a JSON array of papers (id, title, abstract, authors, published,
url) and embeds it into the store. With --rebuild the collection is cleared
first and repopulated from the file alone.`,
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	jsonPath, _ := cmd.Flags().GetString("json")
	rebuild, _ := cmd.Flags().GetBool("rebuild")
	if jsonPath == "" {
		return fmt.Errorf("--json is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	comps, err := openComponents(cmd.Context(), cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer comps.Close()

	var report pipeline.Report
	if rebuild {
		report, err = comps.pipeline.RebuildFromJSON(cmd.Context(), jsonPath, true)
	} else {
		report, err = comps.pipeline.AddPapersFromJSON(cmd.Context(), jsonPath)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Added %d papers (%d total in store)\n", report.Added, report.Stats.Records)
	return nil
}

func init() {
	addCmd.Flags().String("json", "", "JSON file with an array of papers")
	addCmd.Flags().Bool("rebuild", false, "clear the collection before adding")

	rootCmd.AddCommand(addCmd)
}
