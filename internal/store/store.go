// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper index entries in Milvus and serves
// field-partitioned similarity queries over them. Every paper is stored as
// exactly two entries, one for its title and one for its abstract, each
// carrying the full paper metadata, so the collection's document count is
// always twice its paper count.
package store

import (
	"context"
	"strings"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// Index entry field partitions.
const (
	FieldTitle    = "title"
	FieldAbstract = "abstract"
)

// Embedder turns texts into vectors. *embed.Client implements it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Candidate is one similarity query hit, already restricted to a single
// field partition. Distance is 1 - cosine score, so 0 is an exact match.
type Candidate struct {
	RecordID  string
	Field     string
	Distance  float64
	Title     string
	Authors   []string
	Published string
	URL       string
}

// Stats reports collection size. Records is Documents/2 because every paper
// owns two index entries.
type Stats struct {
	Documents int64 `json:"documents"`
	Records   int64 `json:"records"`
}

// Store is the persistence surface the pipeline and searcher consume.
type Store interface {
	// AddRecords embeds and inserts two index entries per paper. Returns
	// the number of papers added.
	AddRecords(ctx context.Context, papers []types.Paper) (int, error)

	// ExistingIDs returns every distinct paper id in the collection.
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)

	// QuerySimilar embeds text and returns the n nearest entries in the
	// given field partition.
	QuerySimilar(ctx context.Context, text string, n int, field string) ([]Candidate, error)

	// CollectionName reports the backing collection's name.
	CollectionName() string

	// DeleteRecords removes both entries for each id. Returns the number
	// of papers actually deleted.
	DeleteRecords(ctx context.Context, ids []string) (int, error)

	Stats(ctx context.Context) (Stats, error)

	// Clear drops and recreates the collection.
	Clear(ctx context.Context) error

	Close() error
}

// entryID builds the per-field document id, e.g. "2401.10001v1#title".
func entryID(paperID, field string) string {
	return paperID + "#" + field
}

// splitEntryID splits a document id back into paper id and field.
func splitEntryID(docID string) (paperID, field string) {
	if i := strings.LastIndex(docID, "#"); i >= 0 {
		return docID[:i], docID[i+1:]
	}
	return docID, ""
}

// joinAuthors flattens the author list for the metadata column.
func joinAuthors(authors []string) string {
	return strings.Join(authors, ", ")
}

// splitAuthors reverses joinAuthors.
func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ", ")
}

// distanceFromScore converts Milvus's higher-is-better cosine score into
// the distance the searcher folds back into a similarity.
func distanceFromScore(score float32) float64 {
	return 1 - float64(score)
}
