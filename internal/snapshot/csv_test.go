// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(types.SnapshotConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// stubClock pins timeNow so daily filenames are predictable.
func stubClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = orig })
}

func samplePapers() []types.Paper {
	return []types.Paper{
		{
			ID:        "2301.07041v1",
			Title:     "Attention Is Not Enough",
			Abstract:  "We revisit attention mechanisms.",
			Authors:   []string{"A. Author", "B. Builder"},
			Published: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			URL:       "https://arxiv.org/abs/2301.07041v1",
		},
		{
			ID:        "2302.00001v2",
			Title:     "Graphs, Everywhere",
			Abstract:  "Graph methods for retrieval.",
			Authors:   []string{"C. Curious"},
			Published: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			URL:       "https://arxiv.org/abs/2302.00001v2",
		},
	}
}

// --- writing ---

func TestAppendInitCreatesFileWithBOMAndHeader(t *testing.T) {
	m := newTestManager(t)

	path, err := m.AppendInit(samplePapers())
	if err != nil {
		t.Fatalf("AppendInit: %v", err)
	}
	if path != m.InitPath() {
		t.Errorf("path = %q, want %q", path, m.InitPath())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(raw, utf8BOM) {
		t.Error("file does not start with UTF-8 BOM")
	}
	text := string(raw[len(utf8BOM):])
	if !strings.HasPrefix(text, "id,title,abstract,authors,published,url\n") {
		t.Errorf("missing header row, got prefix %q", text[:50])
	}
	if !strings.Contains(text, "A. Author;B. Builder") {
		t.Error("authors not joined with semicolons")
	}
	if !strings.Contains(text, "2024-01-15") {
		t.Error("published date not serialized at day resolution")
	}
}

func TestAppendInitAppendsWithoutRepeatingHeader(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.AppendInit(samplePapers()[:1]); err != nil {
		t.Fatalf("first AppendInit: %v", err)
	}
	if _, err := m.AppendInit(samplePapers()[1:]); err != nil {
		t.Fatalf("second AppendInit: %v", err)
	}

	raw, err := os.ReadFile(m.InitPath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := bytes.Count(raw, []byte("id,title,abstract")); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
	if got := bytes.Count(raw, utf8BOM); got != 1 {
		t.Errorf("BOM appears %d times, want 1", got)
	}

	papers, err := m.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("loaded %d papers, want 2", len(papers))
	}
}

func TestWriteInitReplacesExistingFile(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.AppendInit(samplePapers()); err != nil {
		t.Fatalf("AppendInit: %v", err)
	}
	replacement := types.Paper{ID: "9999.00001v1", Title: "Fresh Start",
		Published: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := m.WriteInit([]types.Paper{replacement}); err != nil {
		t.Fatalf("WriteInit: %v", err)
	}

	papers, err := m.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(papers) != 1 || papers[0].ID != "9999.00001v1" {
		t.Fatalf("after overwrite loaded %+v, want just the replacement", papers)
	}
}

func TestWriteDailyUsesTimestampFilename(t *testing.T) {
	m := newTestManager(t)
	stubClock(t, time.Date(2024, 3, 15, 10, 11, 12, 0, time.UTC))

	path, err := m.WriteDaily(samplePapers())
	if err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}
	if got := filepath.Base(path); got != "20240315_101112.csv" {
		t.Errorf("filename = %q, want 20240315_101112.csv", got)
	}
	if filepath.Dir(path) != filepath.Join(m.dir, m.dailyDir) {
		t.Errorf("daily snapshot written outside daily dir: %q", path)
	}
}

func TestWriteSkipsEmptyBatches(t *testing.T) {
	m := newTestManager(t)

	for name, write := range map[string]func([]types.Paper) (string, error){
		"AppendInit": m.AppendInit,
		"WriteDaily": m.WriteDaily,
	} {
		path, err := write(nil)
		if err != nil {
			t.Errorf("%s(nil): unexpected error %v", name, err)
		}
		if path != "" {
			t.Errorf("%s(nil) = %q, want empty path", name, path)
		}
	}
	if _, err := os.Stat(m.InitPath()); !os.IsNotExist(err) {
		t.Error("empty write created the init snapshot")
	}
}

// --- loading ---

func TestLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AppendInit(samplePapers()); err != nil {
		t.Fatalf("AppendInit: %v", err)
	}

	papers, err := m.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("loaded %d papers, want 2", len(papers))
	}

	got := papers[0]
	if got.ID != "2301.07041v1" {
		t.Errorf("ID = %q", got.ID)
	}
	if got.Title != "Attention Is Not Enough" {
		t.Errorf("Title = %q", got.Title)
	}
	if !reflect.DeepEqual(got.Authors, []string{"A. Author", "B. Builder"}) {
		t.Errorf("Authors = %v", got.Authors)
	}
	// Snapshots keep day resolution only.
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", got.Published, want)
	}
	if got.URL != "https://arxiv.org/abs/2301.07041v1" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Load(""); err == nil {
		t.Fatal("Load on a missing file succeeded, want error")
	}
}

func TestLoadRejectsForeignHeader(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(m.dir, "odd.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := m.Load(path); err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Fatalf("Load = %v, want missing column error", err)
	}
}

// --- checkpoint scans ---

func TestMinMaxPublishedDate(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AppendInit(samplePapers()); err != nil {
		t.Fatalf("AppendInit: %v", err)
	}

	min, ok, err := m.MinPublishedDate("")
	if err != nil || !ok {
		t.Fatalf("MinPublishedDate = (%v, %v, %v)", min, ok, err)
	}
	if want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC); !min.Equal(want) {
		t.Errorf("min = %v, want %v", min, want)
	}

	max, ok, err := m.MaxPublishedDate("")
	if err != nil || !ok {
		t.Fatalf("MaxPublishedDate = (%v, %v, %v)", max, ok, err)
	}
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !max.Equal(want) {
		t.Errorf("max = %v, want %v", max, want)
	}
}

func TestScanSkipsUnparseableDates(t *testing.T) {
	m := newTestManager(t)
	raw := "id,title,abstract,authors,published,url\n" +
		"x1,T,A,,not-a-date,u\n" +
		"x2,T,A,,2024-02-01,u\n" +
		"x3,T,A,,,u\n"
	if err := os.WriteFile(m.InitPath(), append(append([]byte{}, utf8BOM...), raw...), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	max, ok, err := m.MaxPublishedDate("")
	if err != nil || !ok {
		t.Fatalf("MaxPublishedDate = (%v, %v, %v)", max, ok, err)
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !max.Equal(want) {
		t.Errorf("max = %v, want %v", max, want)
	}
}

func TestScanMissingFileReportsNoDate(t *testing.T) {
	m := newTestManager(t)

	got, ok, err := m.MaxPublishedDate("")
	if err != nil {
		t.Fatalf("MaxPublishedDate: %v", err)
	}
	if ok || !got.IsZero() {
		t.Errorf("MaxPublishedDate on missing file = (%v, %v), want (zero, false)", got, ok)
	}
}

func TestMaxPublishedDateFromDaily(t *testing.T) {
	m := newTestManager(t)

	stubClock(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	if _, err := m.WriteDaily(samplePapers()[:1]); err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}
	stubClock(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	later := types.Paper{ID: "x", Title: "t", Published: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)}
	if _, err := m.WriteDaily([]types.Paper{later}); err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}

	max, ok, err := m.MaxPublishedDateFromDaily()
	if err != nil || !ok {
		t.Fatalf("MaxPublishedDateFromDaily = (%v, %v, %v)", max, ok, err)
	}
	if want := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC); !max.Equal(want) {
		t.Errorf("max = %v, want %v", max, want)
	}
}

func TestMaxPublishedDateFromDailyEmptyDir(t *testing.T) {
	m := newTestManager(t)

	_, ok, err := m.MaxPublishedDateFromDaily()
	if err != nil {
		t.Fatalf("MaxPublishedDateFromDaily: %v", err)
	}
	if ok {
		t.Error("reported a date with no daily snapshots present")
	}
}

// --- listing and describing ---

func TestListDailyNewestFirst(t *testing.T) {
	m := newTestManager(t)

	stamps := []time.Time{
		time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	for _, at := range stamps {
		stubClock(t, at)
		if _, err := m.WriteDaily(samplePapers()[:1]); err != nil {
			t.Fatalf("WriteDaily: %v", err)
		}
	}

	paths, err := m.ListDaily()
	if err != nil {
		t.Fatalf("ListDaily: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	want := []string{"20240303_080000.csv", "20240302_080000.csv", "20240301_080000.csv"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ListDaily = %v, want %v", names, want)
	}

	latest, ok, err := m.LatestDaily()
	if err != nil || !ok {
		t.Fatalf("LatestDaily = (%q, %v, %v)", latest, ok, err)
	}
	if filepath.Base(latest) != "20240303_080000.csv" {
		t.Errorf("LatestDaily = %q", latest)
	}
}

func TestLatestDailyEmpty(t *testing.T) {
	m := newTestManager(t)
	if _, ok, err := m.LatestDaily(); ok || err != nil {
		t.Fatalf("LatestDaily on empty dir = (ok=%v, err=%v)", ok, err)
	}
}

func TestDescribe(t *testing.T) {
	m := newTestManager(t)
	path, err := m.AppendInit(samplePapers())
	if err != nil {
		t.Fatalf("AppendInit: %v", err)
	}

	info, err := m.Describe(path)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Path != path {
		t.Errorf("Path = %q, want %q", info.Path, path)
	}
	if info.Filename != "init_data.csv" {
		t.Errorf("Filename = %q", info.Filename)
	}
	if info.PaperCount != 2 {
		t.Errorf("PaperCount = %d, want 2", info.PaperCount)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", info.SizeBytes)
	}
	if info.SizeMB < 0 {
		t.Errorf("SizeMB = %f", info.SizeMB)
	}
}
