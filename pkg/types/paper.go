// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DateOnly is the day-resolution date layout papers carry in CSV snapshots
// and index-entry metadata.
const DateOnly = "2006-01-02"

// Paper holds the metadata for one harvested arXiv entry. Identity is ID,
// the last path segment of the arXiv entry URL with its version suffix
// retained (e.g. "2301.07041v1"). A Paper is immutable once fetched.
type Paper struct {
	// ID is the upstream-assigned identifier.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title, whitespace-normalized.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract with newlines collapsed to spaces.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the submission timestamp. Full precision is kept in
	// memory because the crawl window math steps in seconds; snapshots
	// and index metadata serialize it at day resolution.
	Published time.Time `json:"published" yaml:"published"`

	// URL is the canonical abstract page URL.
	URL string `json:"url" yaml:"url"`
}

// PublishedDate returns the day-resolution form of the publish date, the
// representation stored in snapshots and index-entry metadata.
func (p Paper) PublishedDate() string {
	return p.Published.Format(DateOnly)
}
