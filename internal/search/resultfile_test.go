// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

func TestResultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	results := []types.MergedResult{
		{
			PaperID:            "2301.07041v1",
			Title:              "Attention Is Not Enough",
			Authors:            []string{"A. Author", "B. Builder"},
			Published:          "2024-01-15",
			URL:                "https://arxiv.org/abs/2301.07041v1",
			TitleSimilarity:    0.9,
			AbstractSimilarity: 0.7,
			Score:              0.82,
		},
	}

	if err := WriteResultFile(path, "attention mechanisms", 5, testSearchConfig(), results); err != nil {
		t.Fatalf("WriteResultFile: %v", err)
	}

	rf, err := ReadResultFile(path)
	if err != nil {
		t.Fatalf("ReadResultFile: %v", err)
	}
	if rf.Query != "attention mechanisms" {
		t.Errorf("Query = %q", rf.Query)
	}
	if rf.Config.TopK != 5 || rf.Config.TitleWeight != 0.6 || rf.Config.AbstractWeight != 0.4 {
		t.Errorf("Config = %+v", rf.Config)
	}
	if !reflect.DeepEqual(rf.Results, results) {
		t.Errorf("Results = %+v, want %+v", rf.Results, results)
	}
	if rf.Summary.Total != 1 {
		t.Errorf("Summary.Total = %d, want 1", rf.Summary.Total)
	}
	if rf.Summary.Timestamp.IsZero() {
		t.Error("Summary.Timestamp is zero")
	}
}

func TestReadResultFileMissing(t *testing.T) {
	if _, err := ReadResultFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("ReadResultFile on a missing file succeeded, want error")
	}
}

func TestReadResultFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("query: [unterminated"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := ReadResultFile(path); err == nil {
		t.Fatal("ReadResultFile on malformed YAML succeeded, want error")
	}
}
