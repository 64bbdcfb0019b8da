// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates harvest runs: crawling arXiv into the store
// or into CSV snapshots, embedding snapshots into the store, and the
// surrounding maintenance operations. A Pipeline owns the single-flight
// guard that keeps mutating runs from overlapping; window-anchored runs are
// recorded in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/arxiv-scout/internal/arxiv"
	"github.com/pdiddy/arxiv-scout/internal/crawl"
	"github.com/pdiddy/arxiv-scout/internal/ledger"
	"github.com/pdiddy/arxiv-scout/internal/snapshot"
	"github.com/pdiddy/arxiv-scout/internal/store"
	"github.com/pdiddy/arxiv-scout/pkg/metrics"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

var (
	// ErrCheckpointMissing means an update-style run found neither a daily
	// nor an init snapshot to anchor its window on.
	ErrCheckpointMissing = errors.New("no snapshot checkpoint found, run a build first")

	// ErrRunInProgress means another mutating run holds the pipeline.
	ErrRunInProgress = errors.New("another run is already in progress")
)

// Run modes, recorded in the ledger and on metrics labels.
const (
	ModeIncremental = "incremental_update"
	ModeBuildFetch  = "build_fetch"
	ModeBuildEmbed  = "build_embed"
	ModeUpdateFetch = "update_fetch"
	ModeUpdateEmbed = "update_embed"
	ModeAdd         = "add_papers"
	ModeDelete      = "delete_papers"
	ModeRebuild     = "rebuild"
)

// timeNow is stubbed in tests for deterministic windows.
var timeNow = time.Now

// Options tune one run. Zero values fall back to the configured defaults.
type Options struct {
	// MaxResults caps accepted papers; types.Unlimited lifts the cap.
	MaxResults int

	// BatchSize overrides the page/flush size when positive.
	BatchSize int

	// NoResume makes a build run ignore the existing init snapshot and
	// crawl the full time range again.
	NoResume bool
}

// Report summarizes one pipeline operation.
type Report struct {
	RunID   string            `json:"run_id,omitempty"`
	Mode    string            `json:"mode"`
	Result  types.CrawlResult `json:"result"`
	Added   int               `json:"papers_added"`
	Deleted int               `json:"papers_deleted,omitempty"`
	CSVPath string            `json:"csv_path,omitempty"`
	Stats   store.Stats       `json:"stats"`
}

// Pipeline wires the crawl engine to the store, snapshots, and ledger.
type Pipeline struct {
	cfg       types.Config
	store     store.Store
	snapshots *snapshot.Manager
	fetcher   crawl.PageFetcher
	ledger    *ledger.Ledger
	progress  io.Writer

	mu sync.Mutex
}

// New builds a Pipeline. progress may be nil.
func New(cfg types.Config, st store.Store, snaps *snapshot.Manager, fetcher crawl.PageFetcher, led *ledger.Ledger, progress io.Writer) *Pipeline {
	if progress == nil {
		progress = io.Discard
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		snapshots: snaps,
		fetcher:   fetcher,
		ledger:    led,
		progress:  progress,
	}
}

func (p *Pipeline) tryLock() error {
	if !p.mu.TryLock() {
		return ErrRunInProgress
	}
	return nil
}

// IncrementalUpdate crawls new papers from the checkpoint forward and
// stores them directly, batch by batch. This is the primary way the store
// grows after the initial build.
func (p *Pipeline) IncrementalUpdate(ctx context.Context, opts Options) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	window, err := p.updateWindow()
	if err != nil {
		return Report{}, err
	}

	seen, err := p.seedFromStore(ctx)
	if err != nil {
		return Report{}, err
	}

	sink := func(ctx context.Context, papers []types.Paper) error {
		_, err := p.store.AddRecords(ctx, papers)
		return err
	}

	report, err := p.runCrawl(ctx, ModeIncremental, window, seen, sink, opts)
	if err != nil {
		return report, err
	}
	report.Added = report.Result.Accepted

	if err := p.attachStats(ctx, &report); err != nil {
		return report, err
	}
	fmt.Fprintf(p.progress, "incremental update complete: %d new papers, %d total in store\n",
		report.Result.Accepted, report.Stats.Records)
	return report, nil
}

// BuildFetch crawls the category backlog into the init snapshot without
// touching the store. With resume enabled (the default) it continues
// backward from the oldest snapshotted paper and appends; otherwise it
// replaces the snapshot.
func (p *Pipeline) BuildFetch(ctx context.Context, opts Options) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	window, appendMode, err := p.buildWindow(opts.NoResume)
	if err != nil {
		return Report{}, err
	}

	var collected []types.Paper
	sink := func(_ context.Context, papers []types.Paper) error {
		collected = append(collected, papers...)
		return nil
	}

	// Builds crawl the full range; only in-run duplicates are filtered.
	report, err := p.runCrawl(ctx, ModeBuildFetch, window, crawl.NewSeenSet(nil), sink, opts)
	if err != nil {
		return report, err
	}

	var path string
	if appendMode {
		path, err = p.snapshots.AppendInit(collected)
	} else {
		path, err = p.snapshots.WriteInit(collected)
	}
	if err != nil {
		return report, err
	}
	report.CSVPath = path

	if path == "" {
		fmt.Fprintf(p.progress, "build fetch accepted no papers, snapshot unchanged\n")
	} else {
		fmt.Fprintf(p.progress, "build fetch complete: %d papers written to %s\n", len(collected), path)
	}
	return report, nil
}

// UpdateFetch crawls from the checkpoint forward into a fresh daily
// snapshot, deduplicating against the store but not writing to it. The
// papers are embedded later by UpdateEmbed.
func (p *Pipeline) UpdateFetch(ctx context.Context, opts Options) (Report, error) {
	if err := p.tryLock(); err != nil {
		return Report{}, err
	}
	defer p.mu.Unlock()

	window, err := p.updateWindow()
	if err != nil {
		return Report{}, err
	}

	seen, err := p.seedFromStore(ctx)
	if err != nil {
		return Report{}, err
	}

	var collected []types.Paper
	sink := func(_ context.Context, papers []types.Paper) error {
		collected = append(collected, papers...)
		return nil
	}

	report, err := p.runCrawl(ctx, ModeUpdateFetch, window, seen, sink, opts)
	if err != nil {
		return report, err
	}

	path, err := p.snapshots.WriteDaily(collected)
	if err != nil {
		return report, err
	}
	report.CSVPath = path

	if path == "" {
		fmt.Fprintf(p.progress, "update fetch found no new papers\n")
	} else {
		fmt.Fprintf(p.progress, "update fetch complete: %d papers written to %s\n", len(collected), path)
	}
	return report, nil
}

// runCrawl executes one ledgered crawl run and records its metrics.
func (p *Pipeline) runCrawl(ctx context.Context, mode string, window types.FetchWindow, seen *crawl.SeenSet, sink crawl.Sink, opts Options) (Report, error) {
	runID, err := p.ledger.Begin(ctx, mode, window)
	if err != nil {
		return Report{}, fmt.Errorf("recording run start: %w", err)
	}

	ccfg := crawl.Config{
		Query:             arxiv.BuildCategoryQuery(p.cfg.Arxiv.Categories),
		Cap:               orInt(opts.MaxResults, p.cfg.Arxiv.MaxResults),
		BatchSize:         orInt(opts.BatchSize, p.cfg.Arxiv.BatchSize),
		FetchInterval:     p.cfg.Arxiv.FetchInterval,
		StopThresholdDays: p.cfg.Arxiv.StopThresholdDays,
		MaxEmptyBatches:   p.cfg.Arxiv.MaxEmptyBatches,
		RetryMaxAttempts:  p.cfg.Arxiv.RetryMaxAttempts,
		RetryBaseDelay:    p.cfg.Arxiv.RetryBaseDelay,
	}

	start := time.Now()
	result, runErr := crawl.New(p.fetcher, ccfg, p.progress).Run(ctx, window, seen, sink)

	reason := string(result.Reason)
	if runErr != nil && reason == "" {
		reason = "error"
	}
	metrics.RunsTotal.WithLabelValues(mode, reason).Inc()
	metrics.RunDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.PapersAccepted.WithLabelValues(mode).Add(float64(result.Accepted))
	metrics.PapersSkipped.WithLabelValues(mode).Add(float64(result.Skipped))

	// The row is completed even when the caller's context died.
	if err := p.ledger.Finish(context.WithoutCancel(ctx), runID, result, runErr); err != nil {
		fmt.Fprintf(p.progress, "warning: recording run completion: %v\n", err)
	}

	return Report{RunID: runID, Mode: mode, Result: result}, runErr
}

// updateWindow anchors an update-style run: latest daily snapshot date
// first, init snapshot date second, one second past either; no snapshot at
// all means the store was never built.
func (p *Pipeline) updateWindow() (types.FetchWindow, error) {
	now := timeNow()

	if t, ok, err := p.snapshots.MaxPublishedDateFromDaily(); err != nil {
		return types.FetchWindow{}, err
	} else if ok {
		fmt.Fprintf(p.progress, "checkpoint: latest daily snapshot date %s\n", t.Format(types.DateOnly))
		return types.FetchWindow{Start: t.Add(time.Second), End: now}, nil
	}

	if t, ok, err := p.snapshots.MaxPublishedDate(""); err != nil {
		return types.FetchWindow{}, err
	} else if ok {
		fmt.Fprintf(p.progress, "checkpoint: init snapshot date %s\n", t.Format(types.DateOnly))
		return types.FetchWindow{Start: t.Add(time.Second), End: now}, nil
	}

	return types.FetchWindow{}, ErrCheckpointMissing
}

// buildWindow computes the initial build range. The start comes from the
// time filter (two days back when disabled); resuming moves the end to one
// second before the oldest snapshotted paper, so the crawl keeps walking
// into the past.
func (p *Pipeline) buildWindow(noResume bool) (window types.FetchWindow, appendMode bool, err error) {
	now := timeNow()

	start, ok := p.cfg.Arxiv.TimeFilter.StartDate(now)
	if !ok {
		if p.cfg.Arxiv.TimeFilter.Enabled {
			fmt.Fprintf(p.progress, "warning: unknown time filter mode %q, filtering disabled\n",
				p.cfg.Arxiv.TimeFilter.Mode)
		}
		start = now.AddDate(0, 0, -2)
	}
	window = types.FetchWindow{Start: start, End: now}

	if noResume {
		return window, false, nil
	}
	min, ok, err := p.snapshots.MinPublishedDate("")
	if err != nil {
		return types.FetchWindow{}, false, err
	}
	if ok {
		window.End = min.Add(-time.Second)
		appendMode = true
		fmt.Fprintf(p.progress, "resuming build before %s\n", min.Format(types.DateOnly))
	}
	return window, appendMode, nil
}

// seedFromStore loads the store's paper ids as the dedup seed.
func (p *Pipeline) seedFromStore(ctx context.Context) (*crawl.SeenSet, error) {
	existing, err := p.store.ExistingIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading existing ids: %w", err)
	}
	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	fmt.Fprintf(p.progress, "existing papers in store: %d\n", len(ids))
	return crawl.NewSeenSet(ids), nil
}

func (p *Pipeline) attachStats(ctx context.Context, report *Report) error {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading store stats: %w", err)
	}
	report.Stats = st
	return nil
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
