// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/snapshot"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List CSV snapshots and their date ranges",
	RunE:  runSnapshots,
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	snaps, err := snapshot.NewManager(cfg.Snapshots)
	if err != nil {
		return err
	}

	if _, err := os.Stat(snaps.InitPath()); err == nil {
		if err := printSnapshot(snaps, "init ", snaps.InitPath()); err != nil {
			return err
		}
	} else {
		fmt.Println("init   none (run build)")
	}

	daily, err := snaps.ListDaily()
	if err != nil {
		return err
	}
	if len(daily) == 0 {
		fmt.Println("daily  none")
		return nil
	}
	for _, path := range daily {
		if err := printSnapshot(snaps, "daily", path); err != nil {
			return err
		}
	}
	return nil
}

func printSnapshot(snaps *snapshot.Manager, kind, path string) error {
	info, err := snaps.Describe(path)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%s  %-22s  %6d papers  %8.2f MB", kind, info.Filename, info.PaperCount, info.SizeMB)
	if max, ok, err := snaps.MaxPublishedDate(path); err == nil && ok {
		line += "  newest " + max.Format(types.DateOnly)
	}
	fmt.Println(line)
	return nil
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}
