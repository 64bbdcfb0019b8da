// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record in the store collection",
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("clear drops the whole collection: pass --yes to confirm")
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

	if err := comps.pipeline.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Collection cleared.")
	return nil
}

func init() {
	clearCmd.Flags().Bool("yes", false, "confirm the deletion")

	rootCmd.AddCommand(clearCmd)
}
