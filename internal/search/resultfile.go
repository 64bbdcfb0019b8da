// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// ResultFile is the on-disk representation of a search and its ranked
// results. A search can be saved to a file and reviewed later without
// re-embedding the query.
type ResultFile struct {
	Query   string               `yaml:"query"`
	Config  ResultFileConfig     `yaml:"config"`
	Results []types.MergedResult `yaml:"results"`
	Summary ResultSummary        `yaml:"summary"`
}

// ResultFileConfig stores the ranking parameters that produced the results.
type ResultFileConfig struct {
	TopK           int     `yaml:"top_k"`
	TitleWeight    float64 `yaml:"title_weight"`
	AbstractWeight float64 `yaml:"abstract_weight"`
}

// ResultSummary stores result statistics and a timestamp.
type ResultSummary struct {
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteResultFile saves a query and its ranked results to a YAML file.
func WriteResultFile(path, query string, topK int, cfg types.SearchConfig, results []types.MergedResult) error {
	rf := ResultFile{
		Query: query,
		Config: ResultFileConfig{
			TopK:           topK,
			TitleWeight:    cfg.TitleWeight,
			AbstractWeight: cfg.AbstractWeight,
		},
		Results: results,
		Summary: ResultSummary{
			Total:     len(results),
			Timestamp: time.Now(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}
