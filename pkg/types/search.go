// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-scout pipeline:
// harvested papers, crawl windows and results, merged search results, and the
// configuration tree.
package types

// MergedResult is one ranked entry produced by fusing the title-field and
// abstract-field similarity queries. A paper surfacing in only one field
// query still appears, with the other similarity left at zero. The JSON
// field names are the API wire format.
type MergedResult struct {
	// PaperID identifies the underlying paper (index-entry suffix stripped).
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the full paper title from the entry metadata.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the day-resolution publish date string.
	Published string `json:"published" yaml:"published"`

	// URL is the canonical abstract page URL.
	URL string `json:"url" yaml:"url"`

	// TitleSimilarity is 1 - distance from the title-field query, or 0 if
	// the paper was absent from those results.
	TitleSimilarity float64 `json:"title_similarity" yaml:"title_similarity"`

	// AbstractSimilarity is 1 - distance from the abstract-field query, or
	// 0 if the paper was absent from those results.
	AbstractSimilarity float64 `json:"abstract_similarity" yaml:"abstract_similarity"`

	// Score is the weighted combination the results are ranked by.
	Score float64 `json:"score" yaml:"score"`
}
