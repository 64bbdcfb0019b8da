// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snapshot archives harvested papers as CSV files and derives crawl
// checkpoints from them. The init snapshot accumulates the full harvest;
// every incremental run writes a fresh timestamped file under the daily
// directory. Files carry a UTF-8 BOM so spreadsheet tools open them cleanly.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// timeNow is stubbed in tests for deterministic daily filenames.
var timeNow = time.Now

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvHeader is the column order of every snapshot file.
var csvHeader = []string{"id", "title", "abstract", "authors", "published", "url"}

// Info describes one snapshot file.
type Info struct {
	Path       string  `json:"path"`
	Filename   string  `json:"filename"`
	SizeBytes  int64   `json:"size_bytes"`
	SizeMB     float64 `json:"size_mb"`
	PaperCount int     `json:"paper_count"`
}

// Manager owns the snapshot directory layout.
type Manager struct {
	dir          string
	initFilename string
	dailyDir     string
}

// NewManager builds a Manager and creates the snapshot directories.
func NewManager(cfg types.SnapshotConfig) (*Manager, error) {
	if cfg.Dir == "" {
		cfg.Dir = "data"
	}
	if cfg.InitFilename == "" {
		cfg.InitFilename = "init_data.csv"
	}
	if cfg.DailyDir == "" {
		cfg.DailyDir = "daily"
	}

	m := &Manager{dir: cfg.Dir, initFilename: cfg.InitFilename, dailyDir: cfg.DailyDir}
	if err := os.MkdirAll(m.dailyPath(), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directories: %w", err)
	}
	return m, nil
}

// InitPath returns the init snapshot's path. The file may not exist yet.
func (m *Manager) InitPath() string {
	return filepath.Join(m.dir, m.initFilename)
}

func (m *Manager) dailyPath() string {
	return filepath.Join(m.dir, m.dailyDir)
}

// AppendInit appends papers to the init snapshot, creating it with a BOM
// and header first when absent. Returns the file path, or "" when papers is
// empty.
func (m *Manager) AppendInit(papers []types.Paper) (string, error) {
	if len(papers) == 0 {
		return "", nil
	}
	path := m.InitPath()

	_, statErr := os.Stat(path)
	exists := statErr == nil

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := writeRows(f, papers, !exists); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteInit replaces the init snapshot with papers. Returns the file path,
// or "" when papers is empty.
func (m *Manager) WriteInit(papers []types.Paper) (string, error) {
	if len(papers) == 0 {
		return "", nil
	}
	path := m.InitPath()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := writeRows(f, papers, true); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteDaily writes papers to a new timestamped snapshot under the daily
// directory. Returns the file path, or "" when papers is empty.
func (m *Manager) WriteDaily(papers []types.Paper) (string, error) {
	if len(papers) == 0 {
		return "", nil
	}
	path := filepath.Join(m.dailyPath(), timeNow().Format("20060102_150405")+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := writeRows(f, papers, true); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// writeRows writes papers as CSV rows, preceded by the BOM and header when
// the file is fresh.
func writeRows(f *os.File, papers []types.Paper, fresh bool) error {
	if fresh {
		if _, err := f.Write(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, p := range papers {
		row := []string{
			p.ID,
			p.Title,
			p.Abstract,
			strings.Join(p.Authors, ";"),
			p.PublishedDate(),
			p.URL,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Load reads a snapshot back into papers. Published timestamps come back at
// day resolution, which is all the snapshot stores.
func (m *Manager) Load(path string) ([]types.Paper, error) {
	if path == "" {
		path = m.InitPath()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	rows, header, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	papers := make([]types.Paper, 0, len(rows))
	for _, row := range rows {
		p := types.Paper{
			ID:       row[header["id"]],
			Title:    row[header["title"]],
			Abstract: row[header["abstract"]],
			URL:      row[header["url"]],
		}
		if a := row[header["authors"]]; a != "" {
			p.Authors = strings.Split(a, ";")
		}
		if t, perr := time.Parse(types.DateOnly, row[header["published"]]); perr == nil {
			p.Published = t
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// readAll parses a BOM-prefixed CSV into its header map and data rows.
func readAll(f io.Reader) ([][]string, map[string]int, error) {
	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("missing header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[name] = i
	}
	for _, want := range csvHeader {
		if _, ok := header[want]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", want)
		}
	}
	return records[1:], header, nil
}

// ListDaily returns every daily snapshot path, newest first. Timestamped
// names sort chronologically, so the sort is lexical.
func (m *Manager) ListDaily() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.dailyPath(), "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing daily snapshots: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// LatestDaily returns the newest daily snapshot path, if any exists.
func (m *Manager) LatestDaily() (string, bool, error) {
	paths, err := m.ListDaily()
	if err != nil || len(paths) == 0 {
		return "", false, err
	}
	return paths[0], true, nil
}

// Describe reports a snapshot file's size and row count.
func (m *Manager) Describe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("describing snapshot %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	rows, _, err := readAll(f)
	if err != nil {
		return Info{}, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	sizeMB := float64(st.Size()) / (1024 * 1024)
	return Info{
		Path:       path,
		Filename:   filepath.Base(path),
		SizeBytes:  st.Size(),
		SizeMB:     math.Round(sizeMB*100) / 100,
		PaperCount: len(rows),
	}, nil
}

// MinPublishedDate scans a snapshot (the init file when path is empty) for
// its earliest published date. Rows with unparseable dates are skipped; an
// absent file reports no date without error.
func (m *Manager) MinPublishedDate(path string) (time.Time, bool, error) {
	return m.scanDates(path, func(cur, next time.Time) bool { return next.Before(cur) })
}

// MaxPublishedDate scans a snapshot (the init file when path is empty) for
// its latest published date.
func (m *Manager) MaxPublishedDate(path string) (time.Time, bool, error) {
	return m.scanDates(path, func(cur, next time.Time) bool { return next.After(cur) })
}

// MaxPublishedDateFromDaily returns the latest published date across every
// daily snapshot.
func (m *Manager) MaxPublishedDateFromDaily() (time.Time, bool, error) {
	paths, err := m.ListDaily()
	if err != nil {
		return time.Time{}, false, err
	}

	var max time.Time
	found := false
	for _, path := range paths {
		t, ok, err := m.MaxPublishedDate(path)
		if err != nil {
			return time.Time{}, false, err
		}
		if ok && (!found || t.After(max)) {
			max = t
			found = true
		}
	}
	return max, found, nil
}

func (m *Manager) scanDates(path string, better func(cur, next time.Time) bool) (time.Time, bool, error) {
	if path == "" {
		path = m.InitPath()
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	rows, header, err := readAll(f)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	var best time.Time
	found := false
	col := header["published"]
	for _, row := range rows {
		t, perr := time.Parse(types.DateOnly, row[col])
		if perr != nil {
			continue
		}
		if !found || better(best, t) {
			best = t
			found = true
		}
	}
	return best, found, nil
}
