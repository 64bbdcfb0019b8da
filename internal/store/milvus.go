// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// existingIDsPageSize bounds one scan query; Milvus caps query windows, so
// large collections are read page by page.
const existingIDsPageSize = 10000

// Milvus implements Store on a single Milvus collection.
type Milvus struct {
	client   client.Client
	embedder Embedder
	cfg      types.StoreConfig
}

// Connect dials Milvus and loads the collection when it already exists. An
// absent collection is not an error: it behaves as empty and is created on
// the first write.
func Connect(ctx context.Context, cfg types.StoreConfig, embedder Embedder) (*Milvus, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = DefaultVectorDim
	}
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = 16
	}
	if cfg.HNSWEfConstruction <= 0 {
		cfg.HNSWEfConstruction = 200
	}
	if cfg.SearchEf <= 0 {
		cfg.SearchEf = 128
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var c client.Client
	var err error
	if cfg.User != "" && cfg.Password != "" {
		c, err = client.NewClient(ctx, client.Config{
			Address:  addr,
			Username: cfg.User,
			Password: cfg.Password,
		})
	} else {
		c, err = client.NewClient(ctx, client.Config{Address: addr})
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus at %s: %w", addr, err)
	}

	m := &Milvus{client: c, embedder: embedder, cfg: cfg}

	has, err := c.HasCollection(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", cfg.Collection, err)
	}
	if has {
		if err := c.LoadCollection(ctx, cfg.Collection, false); err != nil {
			return nil, fmt.Errorf("loading collection %q: %w", cfg.Collection, err)
		}
	}
	return m, nil
}

// Close releases the Milvus connection.
func (m *Milvus) Close() error {
	return m.client.Close()
}

// ensureCollection creates, indexes, and loads the collection if needed.
func (m *Milvus) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if has {
		return nil
	}

	schema := collectionSchema(m.cfg.Collection, m.cfg.VectorDim)
	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("creating collection %q: %w", m.cfg.Collection, err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.cfg.HNSWM, m.cfg.HNSWEfConstruction)
	if err != nil {
		return fmt.Errorf("describing HNSW index: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.cfg.Collection, vectorField, idx, false); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.cfg.Collection, false); err != nil {
		return fmt.Errorf("loading collection %q: %w", m.cfg.Collection, err)
	}
	return nil
}

// AddRecords embeds every paper's title and abstract and inserts the two
// resulting index entries per paper. Returns papers added.
func (m *Milvus) AddRecords(ctx context.Context, papers []types.Paper) (int, error) {
	if len(papers) == 0 {
		return 0, nil
	}
	if err := m.ensureCollection(ctx); err != nil {
		return 0, err
	}

	texts := make([]string, 0, len(papers)*2)
	for _, p := range papers {
		texts = append(texts, p.Title, p.Abstract)
	}
	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}

	n := len(papers) * 2
	docIDs := make([]string, 0, n)
	paperIDs := make([]string, 0, n)
	parts := make([]string, 0, n)
	titles := make([]string, 0, n)
	authors := make([]string, 0, n)
	published := make([]string, 0, n)
	urls := make([]string, 0, n)

	for _, p := range papers {
		joined := joinAuthors(p.Authors)
		pub := p.PublishedDate()
		// Title entry first, abstract second, matching the vectors slice.
		docIDs = append(docIDs, entryID(p.ID, FieldTitle), entryID(p.ID, FieldAbstract))
		paperIDs = append(paperIDs, p.ID, p.ID)
		parts = append(parts, FieldTitle, FieldAbstract)
		titles = append(titles, p.Title, p.Title)
		authors = append(authors, joined, joined)
		published = append(published, pub, pub)
		urls = append(urls, p.URL, p.URL)
	}

	_, err = m.client.Insert(ctx, m.cfg.Collection, "",
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnFloatVector(vectorField, m.cfg.VectorDim, vectors),
		entity.NewColumnVarChar("paper_id", paperIDs),
		entity.NewColumnVarChar("part", parts),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("authors", authors),
		entity.NewColumnVarChar("published", published),
		entity.NewColumnVarChar("url", urls),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %d index entries: %w", n, err)
	}
	if err := m.client.Flush(ctx, m.cfg.Collection, false); err != nil {
		return 0, fmt.Errorf("flushing collection: %w", err)
	}
	return len(papers), nil
}

// ExistingIDs scans the title partition page by page and returns every
// distinct paper id.
func (m *Milvus) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if !has {
		return ids, nil
	}

	expr := fmt.Sprintf("part == %q", FieldTitle)
	for offset := int64(0); ; offset += existingIDsPageSize {
		rs, err := m.client.Query(ctx, m.cfg.Collection, nil, expr, []string{"paper_id"},
			client.WithOffset(offset), client.WithLimit(existingIDsPageSize))
		if err != nil {
			return nil, fmt.Errorf("scanning ids at offset %d: %w", offset, err)
		}
		col, ok := rs.GetColumn("paper_id").(*entity.ColumnVarChar)
		if !ok || col.Len() == 0 {
			break
		}
		for _, id := range col.Data() {
			ids[id] = struct{}{}
		}
		if int64(col.Len()) < existingIDsPageSize {
			break
		}
	}
	return ids, nil
}

// QuerySimilar embeds text and returns its n nearest entries within one
// field partition. An absent collection yields no candidates.
func (m *Milvus) QuerySimilar(ctx context.Context, text string, n int, field string) ([]Candidate, error) {
	if n <= 0 {
		return nil, nil
	}
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if !has {
		return nil, nil
	}

	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding service returned %d vectors for 1 text", len(vectors))
	}

	sp, err := entity.NewIndexHNSWSearchParam(m.cfg.SearchEf)
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}

	expr := fmt.Sprintf("part == %q", field)
	results, err := m.client.Search(ctx, m.cfg.Collection, nil, expr,
		[]string{"paper_id", "title", "authors", "published", "url"},
		[]entity.Vector{entity.FloatVector(vectors[0])},
		vectorField, entity.COSINE, n, sp)
	if err != nil {
		return nil, fmt.Errorf("searching %s partition: %w", field, err)
	}

	var out []Candidate
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			c := Candidate{Field: field, Distance: distanceFromScore(result.Scores[i])}
			if col, ok := result.Fields.GetColumn("paper_id").(*entity.ColumnVarChar); ok {
				c.RecordID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("title").(*entity.ColumnVarChar); ok {
				c.Title = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("authors").(*entity.ColumnVarChar); ok {
				c.Authors = splitAuthors(col.Data()[i])
			}
			if col, ok := result.Fields.GetColumn("published").(*entity.ColumnVarChar); ok {
				c.Published = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("url").(*entity.ColumnVarChar); ok {
				c.URL = col.Data()[i]
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteRecords removes both index entries for every given paper id and
// returns how many papers were actually present.
func (m *Milvus) DeleteRecords(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return 0, fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if !has {
		return 0, nil
	}

	expr := paperIDsExpr(ids)

	rs, err := m.client.Query(ctx, m.cfg.Collection, nil, expr, []string{"paper_id"})
	if err != nil {
		return 0, fmt.Errorf("counting papers to delete: %w", err)
	}
	present := make(map[string]struct{})
	if col, ok := rs.GetColumn("paper_id").(*entity.ColumnVarChar); ok {
		for _, id := range col.Data() {
			present[id] = struct{}{}
		}
	}
	if len(present) == 0 {
		return 0, nil
	}

	if err := m.client.Delete(ctx, m.cfg.Collection, "", expr); err != nil {
		return 0, fmt.Errorf("deleting %d papers: %w", len(present), err)
	}
	if err := m.client.Flush(ctx, m.cfg.Collection, false); err != nil {
		return 0, fmt.Errorf("flushing collection: %w", err)
	}
	return len(present), nil
}

// Stats reads the collection row count. Papers own two rows each.
func (m *Milvus) Stats(ctx context.Context) (Stats, error) {
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return Stats{}, fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if !has {
		return Stats{}, nil
	}

	raw, err := m.client.GetCollectionStatistics(ctx, m.cfg.Collection)
	if err != nil {
		return Stats{}, fmt.Errorf("reading collection statistics: %w", err)
	}
	rows, _ := strconv.ParseInt(raw["row_count"], 10, 64)
	return Stats{Documents: rows, Records: rows / 2}, nil
}

// Clear drops the collection and recreates it empty.
func (m *Milvus) Clear(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", m.cfg.Collection, err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.cfg.Collection); err != nil {
			return fmt.Errorf("dropping collection %q: %w", m.cfg.Collection, err)
		}
	}
	return m.ensureCollection(ctx)
}

// CollectionName reports which collection this store writes to.
func (m *Milvus) CollectionName() string {
	return m.cfg.Collection
}

// paperIDsExpr builds the boolean expression matching every index entry of
// the given paper ids.
func paperIDsExpr(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return "paper_id in [" + strings.Join(quoted, ", ") + "]"
}
