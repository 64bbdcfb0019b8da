// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed calls the text-embedding service that vectorizes paper
// titles and abstracts before they enter the store.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-scout/internal/httputil"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// DefaultModel is the embedding model used when the configuration names none.
const DefaultModel = "BAAI/bge-m3"

// Client talks to the embedding service. Batches are sized to the service's
// limits; it rate-limit-retries through httputil.DoWithRetry.
type Client struct {
	endpoint  string
	model     string
	batchSize int
	http      *http.Client
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	TokensUsed int         `json:"tokens_used"`
}

// NewClient builds a Client from the embedding section of the configuration.
func NewClient(cfg types.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		model:     model,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
	}
}

// Embed vectorizes texts, preserving input order across batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(resp.Embeddings), end-i)
		}
		all = append(all, resp.Embeddings...)
	}
	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) (*embedResponse, error) {
	body, err := json.Marshal(&embedRequest{Texts: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/embed"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service returned HTTP %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	return &out, nil
}
