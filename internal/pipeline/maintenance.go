// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/arxiv-scout/internal/ledger"
	"github.com/pdiddy/arxiv-scout/internal/snapshot"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// BuildEmbed loads a snapshot (the init file when csvPath is empty) and
// inserts the papers the store does not already hold.
func (p *Pipeline) BuildEmbed(ctx context.Context, csvPath string) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	return p.embedSnapshot(ctx, ModeBuildEmbed, csvPath)
}

// UpdateEmbed embeds a daily snapshot, defaulting to the most recent one.
func (p *Pipeline) UpdateEmbed(ctx context.Context, csvPath string) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	if csvPath == "" {
		latest, ok, err := p.snapshots.LatestDaily()
		if err != nil {
			return Report{Mode: ModeUpdateEmbed}, err
		}
		if !ok {
			return Report{Mode: ModeUpdateEmbed}, fmt.Errorf("no daily snapshots found, run an update fetch first")
		}
		csvPath = latest
	}
	return p.embedSnapshot(ctx, ModeUpdateEmbed, csvPath)
}

// embedSnapshot loads papers from a CSV file and stores the ones missing
// from the collection.
func (p *Pipeline) embedSnapshot(ctx context.Context, mode, csvPath string) (Report, error) {
	report := Report{Mode: mode}

	papers, err := p.snapshots.Load(csvPath)
	if err != nil {
		return report, err
	}
	if len(papers) == 0 {
		fmt.Fprintf(p.progress, "snapshot is empty, nothing to embed\n")
		return report, p.attachStats(ctx, &report)
	}

	existing, err := p.store.ExistingIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("loading existing ids: %w", err)
	}
	fresh := make([]types.Paper, 0, len(papers))
	for _, paper := range papers {
		if _, ok := existing[paper.ID]; !ok {
			fresh = append(fresh, paper)
		}
	}
	if skipped := len(papers) - len(fresh); skipped > 0 {
		fmt.Fprintf(p.progress, "skipping %d papers already in the store\n", skipped)
	}
	if len(fresh) == 0 {
		return report, p.attachStats(ctx, &report)
	}

	fmt.Fprintf(p.progress, "embedding %d papers\n", len(fresh))
	added, err := p.store.AddRecords(ctx, fresh)
	if err != nil {
		return report, fmt.Errorf("adding records: %w", err)
	}
	report.Added = added
	return report, p.attachStats(ctx, &report)
}

// AddPapers embeds and stores the given papers directly.
func (p *Pipeline) AddPapers(ctx context.Context, papers []types.Paper) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	return p.addPapers(ctx, ModeAdd, papers)
}

// AddPapersFromJSON reads a JSON array of papers and stores it.
func (p *Pipeline) AddPapersFromJSON(ctx context.Context, jsonPath string) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	return p.addFromJSON(ctx, ModeAdd, jsonPath)
}

func (p *Pipeline) addFromJSON(ctx context.Context, mode, jsonPath string) (Report, error) {
	papers, err := LoadPapersJSON(jsonPath)
	if err != nil {
		return Report{Mode: mode}, err
	}
	fmt.Fprintf(p.progress, "loaded %d papers from %s\n", len(papers), jsonPath)
	return p.addPapers(ctx, mode, papers)
}

func (p *Pipeline) addPapers(ctx context.Context, mode string, papers []types.Paper) (Report, error) {
	report := Report{Mode: mode}

	added, err := p.store.AddRecords(ctx, papers)
	if err != nil {
		return report, fmt.Errorf("adding records: %w", err)
	}
	report.Added = added
	return report, p.attachStats(ctx, &report)
}

// DeletePapers removes the given paper ids from the store.
func (p *Pipeline) DeletePapers(ctx context.Context, ids []string) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	report := Report{Mode: ModeDelete}
	deleted, err := p.store.DeleteRecords(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("deleting records: %w", err)
	}
	report.Deleted = deleted
	return report, p.attachStats(ctx, &report)
}

// Clear drops every record in the store collection.
func (p *Pipeline) Clear(ctx context.Context) error {
	if err := p.tryLock(); err != nil {
		return err
	}
	defer p.mu.Unlock()

	return p.clear(ctx)
}

func (p *Pipeline) clear(ctx context.Context) error {
	fmt.Fprintf(p.progress, "clearing collection %s\n", p.store.CollectionName())
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}

// RebuildFromJSON repopulates the store from a JSON export, optionally
// clearing it first.
func (p *Pipeline) RebuildFromJSON(ctx context.Context, jsonPath string, clearFirst bool) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	if clearFirst {
		if err := p.clear(ctx); err != nil {
			return Report{Mode: ModeRebuild}, err
		}
	}
	return p.addFromJSON(ctx, ModeRebuild, jsonPath)
}

// StatsReport aggregates store, snapshot, and run-history state.
type StatsReport struct {
	TotalDocuments int64           `json:"total_documents"`
	TotalPapers    int64           `json:"total_papers"`
	Collection     string          `json:"collection_name"`
	Snapshots      SnapshotsReport `json:"snapshots"`
	LastRun        *ledger.Run     `json:"last_run,omitempty"`
}

// SnapshotsReport summarizes the CSV archive.
type SnapshotsReport struct {
	Init        *snapshot.Info `json:"init,omitempty"`
	DailyCount  int            `json:"daily_count"`
	LatestDaily *snapshot.Info `json:"latest_daily,omitempty"`
}

// Stats reports the store contents alongside snapshot and last-run info.
// Snapshot details degrade to absent rather than failing the report.
func (p *Pipeline) Stats(ctx context.Context) (StatsReport, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return StatsReport{}, fmt.Errorf("reading store stats: %w", err)
	}
	report := StatsReport{
		TotalDocuments: st.Documents,
		TotalPapers:    st.Records,
		Collection:     p.store.CollectionName(),
	}

	initPath := p.snapshots.InitPath()
	if _, err := os.Stat(initPath); err == nil {
		if info, err := p.snapshots.Describe(initPath); err == nil {
			report.Snapshots.Init = &info
		} else {
			fmt.Fprintf(p.progress, "warning: describing init snapshot: %v\n", err)
		}
	}

	daily, err := p.snapshots.ListDaily()
	if err != nil {
		fmt.Fprintf(p.progress, "warning: listing daily snapshots: %v\n", err)
	} else {
		report.Snapshots.DailyCount = len(daily)
		if len(daily) > 0 {
			if info, err := p.snapshots.Describe(daily[0]); err == nil {
				report.Snapshots.LatestDaily = &info
			}
		}
	}

	if runs, err := p.ledger.Recent(ctx, 1); err == nil && len(runs) > 0 {
		report.LastRun = &runs[0]
	}
	return report, nil
}

// History returns recent ledger runs, newest first.
func (p *Pipeline) History(ctx context.Context, n int) ([]ledger.Run, error) {
	return p.ledger.Recent(ctx, n)
}

// paperJSON mirrors types.Paper but takes published dates as plain
// strings, so both date-only and RFC 3339 values load.
type paperJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Authors   []string `json:"authors"`
	Published string   `json:"published"`
	URL       string   `json:"url"`
}

// LoadPapersJSON reads a JSON array of papers from disk.
func LoadPapersJSON(path string) ([]types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var raw []paperJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	papers := make([]types.Paper, 0, len(raw))
	for i, r := range raw {
		if r.ID == "" {
			return nil, fmt.Errorf("paper %d in %s has no id", i, path)
		}
		published, err := parsePublished(r.Published)
		if err != nil {
			return nil, fmt.Errorf("paper %s: %w", r.ID, err)
		}
		papers = append(papers, types.Paper{
			ID:        r.ID,
			Title:     r.Title,
			Abstract:  r.Abstract,
			Authors:   r.Authors,
			Published: published,
			URL:       r.URL,
		})
	}
	return papers, nil
}

func parsePublished(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(types.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable published date %q", s)
	}
	return t, nil
}
