// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl implements the time-windowed incremental harvest loop. The
// upstream catalog has no pagination cursor, only descending-time ordering,
// so the crawler walks a submission-date window backward from its end
// toward its start, using each batch's earliest timestamp as the next
// cursor and a seeded id set to drop records the store already holds.
package crawl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// PageFetcher issues one bounded page request for a query and window.
// *arxiv.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, query string, window types.FetchWindow, pageSize int) ([]types.Paper, error)
}

// Sink receives accepted papers in sub-batches as the crawl progresses. A
// sink error aborts the run; a slow sink simply throttles it.
type Sink func(ctx context.Context, papers []types.Paper) error

// Config carries the crawl loop's knobs. The zero value is unusable; New
// fills defaults for everything except Query and Cap.
type Config struct {
	// Query is the base search expression, e.g. from arxiv.BuildCategoryQuery.
	Query string

	// Cap is the maximum number of accepted records for the run. Negative
	// values (types.Unlimited) disable the cap.
	Cap int

	// BatchSize is the page size requested upstream and the sub-batch size
	// delivered to the sink (default 50).
	BatchSize int

	// FetchInterval is the pause between iterations (0 skips it).
	FetchInterval time.Duration

	// StopThresholdDays ends the run once the page's earliest record is
	// within this many days of the window start (default 1).
	StopThresholdDays float64

	// MaxEmptyBatches bounds consecutive zero-accepted iterations (default 5).
	MaxEmptyBatches int

	// RetryMaxAttempts and RetryBaseDelay configure rate-limit backoff
	// (defaults 3 and 5s).
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
}

// Crawler drives one windowed harvest at a time. It holds no run state;
// every Run gets its own window, seen set, and counters.
type Crawler struct {
	fetcher  PageFetcher
	cfg      Config
	progress io.Writer
}

// New builds a Crawler. A nil progress writer discards progress output.
func New(fetcher PageFetcher, cfg Config, progress io.Writer) *Crawler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.StopThresholdDays <= 0 {
		cfg.StopThresholdDays = 1
	}
	if cfg.MaxEmptyBatches <= 0 {
		cfg.MaxEmptyBatches = 5
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 5 * time.Second
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Crawler{fetcher: fetcher, cfg: cfg, progress: progress}
}

// Run executes one crawl over window, newest records first. seen must be
// seeded with the store's known ids before the call. Accepted papers reach
// sink in sub-batches of BatchSize, with any remainder flushed before Run
// returns, including on cancellation. The returned error is non-nil only
// for sink failures; every upstream condition ends the run with a
// termination reason instead.
func (c *Crawler) Run(ctx context.Context, window types.FetchWindow, seen *SeenSet, sink Sink) (types.CrawlResult, error) {
	gov := &retryGovernor{
		maxAttempts: c.cfg.RetryMaxAttempts,
		baseDelay:   c.cfg.RetryBaseDelay,
		progress:    c.progress,
	}

	var res types.CrawlResult
	capped := c.cfg.Cap >= 0
	buf := make([]types.Paper, 0, c.cfg.BatchSize)
	iteration := 0

	flush := func(ctx context.Context) error {
		if len(buf) == 0 {
			return nil
		}
		if err := sink(ctx, buf); err != nil {
			return fmt.Errorf("sinking %d papers after batch %d (window %s): %w", len(buf), iteration, window, err)
		}
		res.Batches++
		buf = buf[:0]
		return nil
	}

	// Cancellation still delivers the papers already accepted, so the
	// closing flush runs on a detached context.
	cancelRun := func() (types.CrawlResult, error) {
		res.Reason = types.ReasonCanceled
		if err := flush(context.WithoutCancel(ctx)); err != nil {
			return res, err
		}
		fmt.Fprintf(c.progress, "crawl canceled: %d accepted, %d skipped\n", res.Accepted, res.Skipped)
		return res, nil
	}

	fmt.Fprintf(c.progress, "crawling window %s\n", window)

	consecutiveEmpty := 0
	for {
		if ctx.Err() != nil {
			return cancelRun()
		}
		iteration++

		page, err := gov.execute(ctx, func(ctx context.Context) ([]types.Paper, error) {
			return c.fetcher.FetchPage(ctx, c.cfg.Query, window, c.cfg.BatchSize)
		})
		if err != nil {
			return cancelRun()
		}

		if len(page) == 0 {
			res.Reason = types.ReasonExhausted
			break
		}

		// Duplicates still inform window shrinkage, so the earliest
		// timestamp comes from the raw page.
		earliest := earliestPublished(page)

		accepted := 0
		for _, p := range page {
			if capped && res.Accepted >= c.cfg.Cap {
				break
			}
			if !seen.Accept(p.ID) {
				res.Skipped++
				continue
			}
			buf = append(buf, p)
			res.Accepted++
			accepted++
			if len(buf) >= c.cfg.BatchSize {
				if err := flush(ctx); err != nil {
					return res, err
				}
			}
		}

		fmt.Fprintf(c.progress, "batch %d: fetched %d, accepted %d, skipped %d\n",
			iteration, len(page), accepted, len(page)-accepted)

		if earliest.IsZero() {
			fmt.Fprintf(c.progress, "warning: page carried no usable timestamps, stopping\n")
			res.Reason = types.ReasonExhausted
			break
		}
		if earliest.Sub(window.Start).Hours() <= c.cfg.StopThresholdDays*24 {
			res.Reason = types.ReasonReachedTarget
			break
		}
		if capped && res.Accepted >= c.cfg.Cap {
			res.Reason = types.ReasonCapReached
			break
		}

		window.End = earliest.Add(-time.Second)
		if accepted == 0 {
			// A congested timestamp region can return the same duplicate
			// set forever; jump an extra minute to get past it.
			window.End = window.End.Add(-time.Minute)
			consecutiveEmpty++
			if consecutiveEmpty >= c.cfg.MaxEmptyBatches {
				res.Reason = types.ReasonTooManyEmptyBatches
				break
			}
		} else {
			consecutiveEmpty = 0
		}

		if c.cfg.FetchInterval > 0 {
			if err := sleep(ctx, c.cfg.FetchInterval); err != nil {
				return cancelRun()
			}
		}
	}

	if err := flush(ctx); err != nil {
		return res, err
	}
	fmt.Fprintf(c.progress, "crawl done: %d accepted, %d skipped, %d batches, reason %s\n",
		res.Accepted, res.Skipped, res.Batches, res.Reason)
	return res, nil
}

// earliestPublished returns the minimum publish timestamp in the page,
// ignoring records whose timestamp failed to parse.
func earliestPublished(page []types.Paper) time.Time {
	var earliest time.Time
	for _, p := range page {
		if p.Published.IsZero() {
			continue
		}
		if earliest.IsZero() || p.Published.Before(earliest) {
			earliest = p.Published
		}
	}
	return earliest
}
