// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv implements the catalog client for the arXiv Atom API.
// It issues single bounded page requests for a category query within a
// submission-date window; retries and pagination policy live with the
// callers in internal/crawl.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ErrRateLimited indicates the upstream answered HTTP 429. Callers must be
// able to distinguish throttling from every other fetch failure.
var ErrRateLimited = errors.New("arXiv API rate limited")

// stampLayout is the submittedDate timestamp format the API expects.
const stampLayout = "20060102150405"

// DefaultCategories is the standard AI/ML category set harvested when the
// configuration names none.
var DefaultCategories = []string{
	"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.NE",
	"cs.RO", "cs.MA", "cs.IR", "cs.HC", "stat.ML",
}

// Client fetches metadata pages from the arXiv API.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a Client from the arXiv section of the configuration.
func NewClient(cfg types.ArxivConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

// BuildCategoryQuery renders the OR-joined category expression used as the
// base search query, e.g. "(cat:cs.AI+OR+cat:cs.LG)".
func BuildCategoryQuery(categories []string) string {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	parts := make([]string, len(categories))
	for i, cat := range categories {
		parts[i] = "cat:" + cat
	}
	return "(" + strings.Join(parts, "+OR+") + ")"
}

// FetchPage requests one page of records matching query whose submission
// time falls inside window, newest first. It returns ErrRateLimited on
// HTTP 429 and performs no retries of its own.
func (c *Client) FetchPage(ctx context.Context, query string, window types.FetchWindow, pageSize int) ([]types.Paper, error) {
	q := fmt.Sprintf("%s+AND+submittedDate:[%s+TO+%s]",
		query, window.Start.Format(stampLayout), window.End.Format(stampLayout))

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, q, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}

		p := types.Paper{
			ID:       id,
			Title:    collapseSpace(entry.Title),
			Abstract: collapseSpace(entry.Summary),
			URL:      strings.TrimSpace(entry.ID),
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Published = t
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1"). The version
// suffix stays: it is part of the upstream identity and what keeps revised
// papers distinct in the dedup set.
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(idURL[idx+len(prefix):])
}

// collapseSpace folds the Atom feed's hard-wrapped text (newlines plus
// continuation indents) into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
