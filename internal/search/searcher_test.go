// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/pdiddy/arxiv-scout/internal/store"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// fakeQuerier serves canned candidates per field partition and records the
// requested sizes.
type fakeQuerier struct {
	title    []store.Candidate
	abstract []store.Candidate
	gotN     map[string]int
	err      error
}

func (f *fakeQuerier) QuerySimilar(_ context.Context, _ string, n int, field string) ([]store.Candidate, error) {
	if f.gotN == nil {
		f.gotN = make(map[string]int)
	}
	f.gotN[field] = n
	if f.err != nil {
		return nil, f.err
	}
	if field == store.FieldTitle {
		return f.title, nil
	}
	return f.abstract, nil
}

func cand(id string, distance float64) store.Candidate {
	return store.Candidate{
		RecordID:  id,
		Distance:  distance,
		Title:     "title of " + id,
		Authors:   []string{"A. Author"},
		Published: "2024-01-15",
		URL:       "https://arxiv.org/abs/" + id,
	}
}

func testSearchConfig() types.SearchConfig {
	return types.SearchConfig{
		DefaultTopK:    5,
		MaxTopK:        50,
		TitleWeight:    0.6,
		AbstractWeight: 0.4,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// --- merging ---

func TestSearchMergesBothFields(t *testing.T) {
	fake := &fakeQuerier{
		title:    []store.Candidate{cand("p1", 0.1)},
		abstract: []store.Candidate{cand("p1", 0.3), cand("p2", 0.2)},
	}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "attention", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	p1 := results[0]
	if p1.PaperID != "p1" {
		t.Fatalf("top result = %q, want p1", p1.PaperID)
	}
	if !almostEqual(p1.TitleSimilarity, 0.9) || !almostEqual(p1.AbstractSimilarity, 0.7) {
		t.Errorf("p1 similarities = (%v, %v), want (0.9, 0.7)", p1.TitleSimilarity, p1.AbstractSimilarity)
	}
	if want := 0.9*0.6 + 0.7*0.4; !almostEqual(p1.Score, want) {
		t.Errorf("p1 score = %v, want %v", p1.Score, want)
	}

	p2 := results[1]
	if p2.PaperID != "p2" {
		t.Fatalf("second result = %q, want p2", p2.PaperID)
	}
	if p2.TitleSimilarity != 0 {
		t.Errorf("p2 title similarity = %v, want 0", p2.TitleSimilarity)
	}
	if want := 0.8 * 0.4; !almostEqual(p2.Score, want) {
		t.Errorf("p2 score = %v, want %v", p2.Score, want)
	}
}

func TestSearchTitleOnlyMatchSurvives(t *testing.T) {
	fake := &fakeQuerier{
		title: []store.Candidate{cand("p1", 0.1)},
	}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "attention", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	got := results[0]
	if got.AbstractSimilarity != 0 {
		t.Errorf("abstract similarity = %v, want 0", got.AbstractSimilarity)
	}
	if !almostEqual(got.Score, 0.54) {
		t.Errorf("score = %v, want 0.54", got.Score)
	}
}

func TestSearchMetadataComesFromTitleEntry(t *testing.T) {
	titleHit := cand("p1", 0.1)
	titleHit.Title = "canonical title"
	abstractHit := cand("p1", 0.2)
	abstractHit.Title = "stale title"

	fake := &fakeQuerier{
		title:    []store.Candidate{titleHit},
		abstract: []store.Candidate{abstractHit},
	}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Title != "canonical title" {
		t.Errorf("Title = %q, want the title entry's metadata", results[0].Title)
	}
}

func TestSearchEqualScoresKeepFoldOrder(t *testing.T) {
	// 0.4 title-only and 0.6 abstract-only both score 0.24.
	fake := &fakeQuerier{
		title:    []store.Candidate{cand("title-only", 0.6)},
		abstract: []store.Candidate{cand("abstract-only", 0.4)},
	}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !almostEqual(results[0].Score, results[1].Score) {
		t.Fatalf("scores differ: %v vs %v", results[0].Score, results[1].Score)
	}
	if results[0].PaperID != "title-only" {
		t.Errorf("tie broke to %q, want title-only first", results[0].PaperID)
	}
}

// --- topK handling ---

func TestSearchClampsTopK(t *testing.T) {
	var many []store.Candidate
	for i := 0; i < 60; i++ {
		many = append(many, cand(strings.Repeat("x", i+1), float64(i)/100))
	}
	fake := &fakeQuerier{title: many}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "q", 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 50 {
		t.Errorf("got %d results, want at most 50", len(results))
	}
	// Each partition is overqueried at twice the clamped topK.
	if fake.gotN[store.FieldTitle] != 100 || fake.gotN[store.FieldAbstract] != 100 {
		t.Errorf("query sizes = %v, want 100 per field", fake.gotN)
	}
}

func TestSearchZeroTopKUsesDefault(t *testing.T) {
	fake := &fakeQuerier{}
	s := NewSearcher(fake, testSearchConfig(), nil)

	if _, err := s.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fake.gotN[store.FieldTitle] != 10 {
		t.Errorf("query size = %d, want 10 (2 x default topK)", fake.gotN[store.FieldTitle])
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	fake := &fakeQuerier{
		title: []store.Candidate{cand("a", 0.1), cand("b", 0.2), cand("c", 0.3)},
	}
	s := NewSearcher(fake, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].PaperID != "a" || results[1].PaperID != "b" {
		t.Errorf("kept %q, %q; want the two best", results[0].PaperID, results[1].PaperID)
	}
}

// --- failure and empty paths ---

func TestSearchQueryErrorPropagates(t *testing.T) {
	fake := &fakeQuerier{err: errors.New("collection offline")}
	s := NewSearcher(fake, testSearchConfig(), nil)

	_, err := s.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("Search succeeded, want error")
	}
	if !strings.Contains(err.Error(), "collection offline") {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s := NewSearcher(&fakeQuerier{}, testSearchConfig(), nil)

	results, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from an empty store, want 0", len(results))
	}
}

func TestNewSearcherFillsDefaults(t *testing.T) {
	s := NewSearcher(&fakeQuerier{}, types.SearchConfig{}, nil)

	if s.cfg.DefaultTopK != DefaultTopK || s.cfg.MaxTopK != DefaultMaxTopK {
		t.Errorf("topK defaults = (%d, %d)", s.cfg.DefaultTopK, s.cfg.MaxTopK)
	}
	if s.cfg.TitleWeight != DefaultTitleWeight || s.cfg.AbstractWeight != DefaultAbstractWeight {
		t.Errorf("weight defaults = (%v, %v)", s.cfg.TitleWeight, s.cfg.AbstractWeight)
	}
}
