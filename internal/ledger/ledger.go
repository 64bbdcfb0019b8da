// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records run history in a local SQLite database. Every
// pipeline run gets a row at start and a completion update at the end, so
// operators can audit what ran, over which window, and how it terminated.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

const defaultPath = "data/runs.db"

// Run is one recorded pipeline run. FinishedAt is zero while the run is
// still in flight. Reason and Error are empty for runs that carry none.
type Run struct {
	ID          string    `json:"id"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	WindowStart time.Time `json:"window_start,omitzero"`
	WindowEnd   time.Time `json:"window_end,omitzero"`
	Accepted    int       `json:"accepted"`
	Skipped     int       `json:"skipped"`
	Batches     int       `json:"batches"`
	Reason      string    `json:"reason,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Ledger manages the run-history SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database, creating the schema when it
// does not exist.
func Open(cfg types.LedgerConfig) (*Ledger, error) {
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT '',
			window_start TEXT NOT NULL DEFAULT '',
			window_end TEXT NOT NULL DEFAULT '',
			accepted INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			batches INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Begin records the start of a run and returns its id. A zero window is
// stored empty, for runs that are not window-driven.
func (l *Ledger) Begin(ctx context.Context, mode string, window types.FetchWindow) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, started_at, window_start, window_end)
		 VALUES (?, ?, ?, ?, ?)`,
		id, mode, formatTime(time.Now().UTC()),
		formatTime(window.Start), formatTime(window.End),
	)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// Finish completes a run row with its crawl counters and outcome. runErr
// may be nil.
func (l *Ledger) Finish(ctx context.Context, id string, result types.CrawlResult, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs
		 SET finished_at = ?, accepted = ?, skipped = ?, batches = ?, reason = ?, error = ?
		 WHERE id = ?`,
		formatTime(time.Now().UTC()),
		result.Accepted, result.Skipped, result.Batches, string(result.Reason), errText,
		id,
	)
	if err != nil {
		return fmt.Errorf("recording run completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking run update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, mode, started_at, finished_at, window_start, window_end,
		        accepted, skipped, batches, reason, error
		 FROM runs
		 ORDER BY started_at DESC, id
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished, wStart, wEnd string
		if err := rows.Scan(&r.ID, &r.Mode, &started, &finished, &wStart, &wEnd,
			&r.Accepted, &r.Skipped, &r.Batches, &r.Reason, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.WindowStart = parseTime(wStart)
		r.WindowEnd = parseTime(wEnd)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// storedTimeLayout keeps a fixed-width fraction so the lexical ordering of
// stored timestamps matches their chronological ordering; Recent sorts on
// the column text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime stores zero times as empty strings so unfinished and
// windowless runs stay distinguishable.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(storedTimeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
