// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-scout/internal/arxiv"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// day returns a fixed January 2024 timestamp for building test pages.
func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func paper(id string, published time.Time) types.Paper {
	return types.Paper{ID: id, Title: "title " + id, Abstract: "abstract " + id, Published: published}
}

func testCrawlWindow() types.FetchWindow {
	return types.FetchWindow{Start: day(1, 0), End: day(31, 12)}
}

func testCrawlConfig() Config {
	return Config{
		Query:             "(cat:cs.AI)",
		Cap:               types.Unlimited,
		BatchSize:         2,
		StopThresholdDays: 1,
		MaxEmptyBatches:   5,
		RetryMaxAttempts:  3,
		RetryBaseDelay:    time.Millisecond,
	}
}

// fakeFetcher serves scripted pages in order, then empty pages forever.
type fakeFetcher struct {
	pages       [][]types.Paper
	calls       int
	windows     []types.FetchWindow
	gotQuery    string
	gotPageSize int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, query string, window types.FetchWindow, pageSize int) ([]types.Paper, error) {
	f.windows = append(f.windows, window)
	f.gotQuery = query
	f.gotPageSize = pageSize
	i := f.calls
	f.calls++
	if i >= len(f.pages) {
		return nil, nil
	}
	return f.pages[i], nil
}

// sinkRecorder captures the ids delivered per flush.
type sinkRecorder struct {
	batches [][]string
	err     error
}

func (s *sinkRecorder) sink(ctx context.Context, papers []types.Paper) error {
	if s.err != nil {
		return s.err
	}
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	s.batches = append(s.batches, ids)
	return nil
}

func assertBatches(t *testing.T, got [][]string, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("flushed %d batches (%v), want %d (%v)", len(got), got, len(want), want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("batch %d = %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("batch %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

// --- Run: acceptance, batching, window plumbing ---

func TestCrawlerRunAcceptsAndFlushes(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{
		{paper("a", day(30, 12)), paper("b", day(29, 12)), paper("c", day(28, 12))},
		{paper("d", day(20, 12))},
	}}
	rec := &sinkRecorder{}

	c := New(f, testCrawlConfig(), nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Accepted != 4 || res.Skipped != 0 {
		t.Errorf("accepted/skipped = %d/%d, want 4/0", res.Accepted, res.Skipped)
	}
	if res.Reason != types.ReasonExhausted {
		t.Errorf("reason = %q, want exhausted", res.Reason)
	}
	if res.Batches != 2 {
		t.Errorf("batches = %d, want 2", res.Batches)
	}
	assertBatches(t, rec.batches, [][]string{{"a", "b"}, {"c", "d"}})

	if f.gotQuery != "(cat:cs.AI)" {
		t.Errorf("query = %q, want plumbed through", f.gotQuery)
	}
	if f.gotPageSize != 2 {
		t.Errorf("pageSize = %d, want BatchSize 2", f.gotPageSize)
	}
	if f.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", f.calls)
	}

	// The window end follows each page's earliest timestamp minus a second.
	if !f.windows[1].End.Equal(day(28, 12).Add(-time.Second)) {
		t.Errorf("second window end = %v, want earliest-1s", f.windows[1].End)
	}
	if !f.windows[2].End.Equal(day(20, 12).Add(-time.Second)) {
		t.Errorf("third window end = %v, want earliest-1s", f.windows[2].End)
	}
}

func TestCrawlerRunWindowShrinkMonotonic(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{
		{paper("a", day(30, 12))},
		{paper("b", day(25, 12))},
		{paper("c", day(15, 12))},
	}}

	c := New(f, testCrawlConfig(), nil)
	if _, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), (&sinkRecorder{}).sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 1; i < len(f.windows); i++ {
		if !f.windows[i].End.Before(f.windows[i-1].End) {
			t.Errorf("window %d end %v not before window %d end %v",
				i, f.windows[i].End, i-1, f.windows[i-1].End)
		}
		if !f.windows[i].Start.Equal(f.windows[0].Start) {
			t.Errorf("window %d start moved: %v", i, f.windows[i].Start)
		}
	}
}

// --- Run: dedup ---

func TestCrawlerRunSkipsDuplicates(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{
		{paper("a", day(30, 12)), paper("b", day(29, 12))},
		{paper("a", day(28, 12))}, // reappears in a later page
	}}
	rec := &sinkRecorder{}

	c := New(f, testCrawlConfig(), nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet([]string{"b"}), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Accepted != 1 || res.Skipped != 2 {
		t.Errorf("accepted/skipped = %d/%d, want 1/2", res.Accepted, res.Skipped)
	}
	// "a" reaches the sink exactly once.
	assertBatches(t, rec.batches, [][]string{{"a"}})

	// An all-duplicate iteration jumps the window back an extra minute.
	wantEnd := day(28, 12).Add(-time.Second).Add(-time.Minute)
	if !f.windows[2].End.Equal(wantEnd) {
		t.Errorf("window end after duplicate-only page = %v, want %v", f.windows[2].End, wantEnd)
	}
}

// --- Run: termination reasons ---

func TestCrawlerRunReachedTarget(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{
		{paper("a", day(1, 18))}, // 18h from window start, inside the 1 day threshold
	}}
	rec := &sinkRecorder{}

	c := New(f, testCrawlConfig(), nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonReachedTarget {
		t.Errorf("reason = %q, want reached_target", res.Reason)
	}
	if res.Accepted != 1 || f.calls != 1 {
		t.Errorf("accepted = %d, calls = %d, want 1 and 1", res.Accepted, f.calls)
	}
	assertBatches(t, rec.batches, [][]string{{"a"}})
}

func TestCrawlerRunCapReached(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{{
		paper("a", day(30, 12)),
		paper("b", day(29, 12)),
		paper("c", day(28, 12)),
		paper("d", day(27, 12)),
		paper("e", day(26, 12)),
	}}}
	rec := &sinkRecorder{}

	cfg := testCrawlConfig()
	cfg.Cap = 3
	cfg.BatchSize = 10
	c := New(f, cfg, nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonCapReached {
		t.Errorf("reason = %q, want cap_reached", res.Reason)
	}
	// The page stops being consumed once the cap is met.
	if res.Accepted != 3 || res.Skipped != 0 {
		t.Errorf("accepted/skipped = %d/%d, want 3/0", res.Accepted, res.Skipped)
	}
	assertBatches(t, rec.batches, [][]string{{"a", "b", "c"}})
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}
}

func TestCrawlerRunTooManyEmptyBatches(t *testing.T) {
	dupPage := []types.Paper{paper("x1", day(20, 12)), paper("x2", day(20, 13))}
	f := &fakeFetcher{pages: [][]types.Paper{dupPage, dupPage, dupPage, dupPage, dupPage, dupPage}}
	rec := &sinkRecorder{}

	c := New(f, testCrawlConfig(), nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet([]string{"x1", "x2"}), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonTooManyEmptyBatches {
		t.Errorf("reason = %q, want too_many_empty_batches", res.Reason)
	}
	// Bound of 5 means exactly 5 duplicate-only iterations, never a sixth.
	if f.calls != 5 {
		t.Errorf("fetch calls = %d, want 5", f.calls)
	}
	if res.Accepted != 0 || res.Skipped != 10 {
		t.Errorf("accepted/skipped = %d/%d, want 0/10", res.Accepted, res.Skipped)
	}
	if len(rec.batches) != 0 {
		t.Errorf("sink received %v, want nothing", rec.batches)
	}

	wantEnd := day(20, 12).Add(-time.Second).Add(-time.Minute)
	if !f.windows[1].End.Equal(wantEnd) {
		t.Errorf("window end after duplicate-only page = %v, want %v", f.windows[1].End, wantEnd)
	}
}

func TestCrawlerRunEmptyFirstPage(t *testing.T) {
	f := &fakeFetcher{}
	rec := &sinkRecorder{}

	c := New(f, testCrawlConfig(), nil)
	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonExhausted {
		t.Errorf("reason = %q, want exhausted", res.Reason)
	}
	if res.Accepted != 0 || res.Batches != 0 || f.calls != 1 {
		t.Errorf("accepted/batches/calls = %d/%d/%d, want 0/0/1", res.Accepted, res.Batches, f.calls)
	}
}

// --- Run: sink failures and cancellation ---

func TestCrawlerRunSinkErrorAborts(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Paper{{paper("a", day(30, 12))}}}
	rec := &sinkRecorder{err: errors.New("store down")}

	cfg := testCrawlConfig()
	cfg.BatchSize = 1
	c := New(f, cfg, nil)
	_, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err == nil {
		t.Fatal("expected sink error")
	}
	if !strings.Contains(err.Error(), "store down") {
		t.Errorf("error = %q, should wrap the sink failure", err.Error())
	}
	if !strings.Contains(err.Error(), "window") {
		t.Errorf("error = %q, should carry the window for resumption", err.Error())
	}
}

type cancellingFetcher struct {
	cancel context.CancelFunc
	page   []types.Paper
	calls  int
}

func (f *cancellingFetcher) FetchPage(ctx context.Context, query string, window types.FetchWindow, pageSize int) ([]types.Paper, error) {
	f.calls++
	f.cancel()
	return f.page, nil
}

func TestCrawlerRunCancelFlushesRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &cancellingFetcher{cancel: cancel, page: []types.Paper{paper("a", day(30, 12))}}
	rec := &sinkRecorder{}

	cfg := testCrawlConfig()
	cfg.BatchSize = 10
	c := New(f, cfg, nil)
	res, err := c.Run(ctx, testCrawlWindow(), NewSeenSet(nil), rec.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonCanceled {
		t.Errorf("reason = %q, want canceled", res.Reason)
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}
	// The accepted-but-unflushed remainder still reaches the sink.
	assertBatches(t, rec.batches, [][]string{{"a"}})
}

// --- Run: rate limiting handoff ---

type rateLimitedFetcher struct{ calls int }

func (f *rateLimitedFetcher) FetchPage(ctx context.Context, query string, window types.FetchWindow, pageSize int) ([]types.Paper, error) {
	f.calls++
	return nil, arxiv.ErrRateLimited
}

func TestCrawlerRunRateLimitBudgetSpentEndsExhausted(t *testing.T) {
	slept := stubSleep(t)

	f := &rateLimitedFetcher{}
	cfg := testCrawlConfig()
	cfg.RetryBaseDelay = 5 * time.Second
	c := New(f, cfg, nil)

	res, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), (&sinkRecorder{}).sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != types.ReasonExhausted {
		t.Errorf("reason = %q, want exhausted", res.Reason)
	}
	if f.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", f.calls)
	}
	if len(*slept) != 3 {
		t.Errorf("sleeps = %v, want the three backoff delays", *slept)
	}
}

func TestCrawlerRunFetchIntervalSleeps(t *testing.T) {
	slept := stubSleep(t)

	f := &fakeFetcher{pages: [][]types.Paper{{paper("a", day(30, 12))}}}
	cfg := testCrawlConfig()
	cfg.FetchInterval = 7 * time.Second
	c := New(f, cfg, nil)

	if _, err := c.Run(context.Background(), testCrawlWindow(), NewSeenSet(nil), (&sinkRecorder{}).sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := false
	for _, d := range *slept {
		if d == 7*time.Second {
			found = true
		}
	}
	if !found {
		t.Errorf("sleeps = %v, want a 7s inter-batch pause", *slept)
	}
}

// --- New: defaults ---

func TestNewFillsDefaults(t *testing.T) {
	c := New(&fakeFetcher{}, Config{Query: "(cat:cs.AI)", Cap: types.Unlimited}, nil)

	if c.cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", c.cfg.BatchSize)
	}
	if c.cfg.StopThresholdDays != 1 {
		t.Errorf("StopThresholdDays = %v, want 1", c.cfg.StopThresholdDays)
	}
	if c.cfg.MaxEmptyBatches != 5 {
		t.Errorf("MaxEmptyBatches = %d, want 5", c.cfg.MaxEmptyBatches)
	}
	if c.cfg.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", c.cfg.RetryMaxAttempts)
	}
	if c.cfg.RetryBaseDelay != 5*time.Second {
		t.Errorf("RetryBaseDelay = %v, want 5s", c.cfg.RetryBaseDelay)
	}
}
