// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent crawl runs from the ledger",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	led, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return err
	}
	defer led.Close()

	runs, err := led.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-19s  %-18s  %-9s  %-9s  %-8s  %s\n", "Started", "Mode", "Accepted", "Skipped", "Batches", "Result")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range runs {
		fmt.Printf("%-19s  %-18s  %-9d  %-9d  %-8d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Accepted, r.Skipped, r.Batches, runOutcome(r))
	}
	return nil
}

// runOutcome summarizes how a ledgered run ended.
func runOutcome(r ledger.Run) string {
	switch {
	case r.Error != "":
		return "error: " + r.Error
	case r.FinishedAt.IsZero():
		return "running"
	case r.Reason != "":
		return r.Reason
	default:
		return "done"
	}
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to show")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
