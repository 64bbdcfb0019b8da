// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store, snapshot, and last-run statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	comps, err := openComponents(cmd.Context(), cfg, io.Discard)
	if err != nil {
		return err
	}
	defer comps.Close()

	report, err := comps.pipeline.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Collection:      %s\n", report.Collection)
	fmt.Printf("Papers:          %d\n", report.TotalPapers)
	fmt.Printf("Index entries:   %d\n", report.TotalDocuments)
	if init := report.Snapshots.Init; init != nil {
		fmt.Printf("Init snapshot:   %s (%d papers, %.2f MB)\n", init.Filename, init.PaperCount, init.SizeMB)
	} else {
		fmt.Println("Init snapshot:   none (run build)")
	}
	fmt.Printf("Daily snapshots: %d\n", report.Snapshots.DailyCount)
	if run := report.LastRun; run != nil {
		fmt.Printf("Last run:        %s at %s (%d accepted, %s)\n",
			run.Mode, run.StartedAt.Format(time.RFC3339), run.Accepted, runOutcome(*run))
	}
	return nil
}

func init() {
	statsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(statsCmd)
}
