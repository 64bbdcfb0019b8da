// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search ranks stored papers against a free-text query. A query is
// run once against the title index partition and once against the abstract
// partition, and the two candidate lists are fused into a single weighted
// ranking per paper.
package search

import (
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/arxiv-scout/internal/store"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// Ranking defaults, used when the configuration leaves them unset.
const (
	DefaultTopK           = 5
	DefaultMaxTopK        = 50
	DefaultTitleWeight    = 0.6
	DefaultAbstractWeight = 0.4
)

// Querier is the slice of the store the searcher consumes.
type Querier interface {
	QuerySimilar(ctx context.Context, text string, n int, field string) ([]store.Candidate, error)
}

// Searcher merges dual-field similarity queries into one ranked list. It is
// stateless between calls and safe for concurrent use.
type Searcher struct {
	store    Querier
	cfg      types.SearchConfig
	progress io.Writer
}

// NewSearcher builds a Searcher, filling unset config fields with defaults.
// progress may be nil.
func NewSearcher(q Querier, cfg types.SearchConfig, progress io.Writer) *Searcher {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.TitleWeight == 0 && cfg.AbstractWeight == 0 {
		cfg.TitleWeight = DefaultTitleWeight
		cfg.AbstractWeight = DefaultAbstractWeight
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Searcher{store: q, cfg: cfg, progress: progress}
}

// Search returns up to topK papers ranked by weighted similarity to query.
// topK <= 0 selects the configured default; values above the configured
// maximum are clamped down to it.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]types.MergedResult, error) {
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}

	// Overquery each partition so a paper near the cut in one field can
	// still place once both similarities are combined.
	querySize := topK * 2

	var titleHits, abstractHits []store.Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		titleHits, err = s.store.QuerySimilar(gctx, query, querySize, store.FieldTitle)
		if err != nil {
			return fmt.Errorf("title query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		abstractHits, err = s.store.QuerySimilar(gctx, query, querySize, store.FieldAbstract)
		if err != nil {
			return fmt.Errorf("abstract query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fmt.Fprintf(s.progress, "merging %d title and %d abstract candidates\n",
		len(titleHits), len(abstractHits))

	merged := s.merge(titleHits, abstractHits)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// merge folds both candidate lists into per-paper results. Title hits fold
// first, so when both partitions return a paper its metadata comes from the
// title entry. A paper seen in only one partition keeps zero similarity for
// the other and is still ranked; callers rely on these single-field matches.
// Ties keep fold order, title hits ahead of abstract-only ones.
func (s *Searcher) merge(titleHits, abstractHits []store.Candidate) []types.MergedResult {
	byPaper := make(map[string]*types.MergedResult, len(titleHits)+len(abstractHits))
	var order []*types.MergedResult

	fold := func(hits []store.Candidate, title bool) {
		for _, c := range hits {
			r, ok := byPaper[c.RecordID]
			if !ok {
				r = &types.MergedResult{
					PaperID:   c.RecordID,
					Title:     c.Title,
					Authors:   c.Authors,
					Published: c.Published,
					URL:       c.URL,
				}
				byPaper[c.RecordID] = r
				order = append(order, r)
			}
			if title {
				r.TitleSimilarity = 1 - c.Distance
			} else {
				r.AbstractSimilarity = 1 - c.Distance
			}
		}
	}
	fold(titleHits, true)
	fold(abstractHits, false)

	results := make([]types.MergedResult, len(order))
	for i, r := range order {
		r.Score = r.TitleSimilarity*s.cfg.TitleWeight + r.AbstractSimilarity*s.cfg.AbstractWeight
		results[i] = *r
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
