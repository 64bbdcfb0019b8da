// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/arxiv-scout/internal/arxiv"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// sleep waits for d or until ctx is canceled. Declared as a var so tests
// can record the requested delays instead of waiting them out.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// pageFetch is one attempt at fetching a page.
type pageFetch func(ctx context.Context) ([]types.Paper, error)

// retryGovernor wraps single page fetches with exponential backoff on rate
// limiting. A page that keeps failing does not fail the crawl: the governor
// hands back an empty page and lets the loop wind down as if the upstream
// were exhausted.
type retryGovernor struct {
	maxAttempts int
	baseDelay   time.Duration
	progress    io.Writer
}

// execute runs fetch up to maxAttempts times. A rate-limited attempt sleeps
// baseDelay doubled per attempt (5s, 10s, 20s with the defaults) before the
// next try; once the budget is spent the page comes back empty with no
// error. Any non-rate-limit failure is consumed as an empty page right
// away, so transient content errors never burn the throttling budget. Only
// cancellation surfaces as an error.
func (g *retryGovernor) execute(ctx context.Context, fetch pageFetch) ([]types.Paper, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		papers, err := fetch(ctx)
		if err == nil {
			return papers, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, arxiv.ErrRateLimited) {
			fmt.Fprintf(g.progress, "warning: page fetch failed, continuing with empty page: %v\n", err)
			return nil, nil
		}

		delay := g.baseDelay << (attempt - 1)
		fmt.Fprintf(g.progress, "rate limited, backing off %s (attempt %d/%d)\n", delay, attempt, g.maxAttempts)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(g.progress, "warning: rate limit budget spent, continuing with empty page\n")
	return nil, nil
}
