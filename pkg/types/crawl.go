// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Unlimited is the sentinel for "no result cap" on a crawl run.
const Unlimited = -1

// TerminationReason names the state a crawl loop terminated in.
type TerminationReason string

const (
	// ReasonReachedTarget: the batch's earliest record landed within the
	// stop-distance threshold of the window's start date.
	ReasonReachedTarget TerminationReason = "reached_target"

	// ReasonExhausted: the upstream returned an empty page for the
	// current window (including pages emptied by fetch failures).
	ReasonExhausted TerminationReason = "exhausted"

	// ReasonCapReached: the accepted-record count hit the result cap.
	ReasonCapReached TerminationReason = "cap_reached"

	// ReasonTooManyEmptyBatches: the configured number of consecutive
	// all-duplicate batches passed without a single accepted record.
	ReasonTooManyEmptyBatches TerminationReason = "too_many_empty_batches"

	// ReasonCanceled: the caller's context was canceled mid-run.
	ReasonCanceled TerminationReason = "canceled"
)

// FetchWindow is the [Start, End] time range one crawl batch queries.
// End walks backward batch by batch: it is set one second before the
// previous batch's earliest record, so consecutive batches never overlap.
// Start <= End holds while the loop runs; the loop terminates before the
// invariant would be violated.
type FetchWindow struct {
	Start time.Time
	End   time.Time
}

// String renders the window for progress output and error context.
func (w FetchWindow) String() string {
	return fmt.Sprintf("%s .. %s", w.Start.Format(DateOnly), w.End.Format("2006-01-02 15:04:05"))
}

// CrawlResult summarizes one crawl run.
type CrawlResult struct {
	// Accepted counts records that passed the dedup gate and were handed
	// to the sink.
	Accepted int `json:"accepted"`

	// Skipped counts records dropped as already-seen duplicates.
	Skipped int `json:"skipped"`

	// Batches is the number of page requests issued.
	Batches int `json:"batches"`

	// Reason records why the loop stopped.
	Reason TerminationReason `json:"reason"`
}
