// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-scout/internal/search"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored papers with natural language",
	Long: `Search embeds the query once per field, runs title and abstract similarity
queries in parallel, and ranks papers by the weighted combination of both
similarities. A paper matching on only one field still ranks, with the
missing similarity scored as zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")

	query := strings.Join(args, " ")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	searcher := search.NewSearcher(st, cfg.Search, os.Stderr)
	results, err := searcher.Search(cmd.Context(), query, topK)
	if err != nil {
		return err
	}

	if savePath != "" {
		if err := search.WriteResultFile(savePath, query, topK, cfg.Search, results); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved results to %s\n", savePath)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printResults(os.Stdout, query, results)
}

func printResults(w io.Writer, query string, results []types.MergedResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-7s  %-60s  %-12s  %s\n", "Rank", "Score", "Title", "Published", "Paper ID")
	fmt.Fprintln(w, strings.Repeat("-", 105))
	for i, r := range results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-7.4f  %-60s  %-12s  %s\n", i+1, r.Score, title, r.Published, r.PaperID)
	}

	fmt.Fprintf(w, "\n%d results for %q\n", len(results), query)
	return nil
}

func init() {
	searchCmd.Flags().Int("top-k", 0, "number of results (0 = config default)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "also write results to a YAML file")

	rootCmd.AddCommand(searchCmd)
}
