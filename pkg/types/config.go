// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-scout/0.1").
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// TimeFilterConfig bounds how far back an initial (non-resumed) crawl
// reaches. When disabled, crawls default to two days back.
type TimeFilterConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Mode is one of "days", "weeks", "months", or "years". Months count
	// as 30 days and years as 365. An unknown mode disables the filter.
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Value is the number of Mode units to reach back.
	Value int `yaml:"value" mapstructure:"value"`
}

// StartDate resolves the filter to a concrete start time relative to now.
// ok is false when the filter is disabled or the mode is unrecognized; the
// caller picks its own fallback.
func (c TimeFilterConfig) StartDate(now time.Time) (start time.Time, ok bool) {
	if !c.Enabled {
		return time.Time{}, false
	}
	switch c.Mode {
	case "days":
		return now.AddDate(0, 0, -c.Value), true
	case "weeks":
		return now.AddDate(0, 0, -7*c.Value), true
	case "months":
		return now.AddDate(0, 0, -30*c.Value), true
	case "years":
		return now.AddDate(0, 0, -365*c.Value), true
	default:
		return time.Time{}, false
	}
}

// ArxivConfig holds settings for the arXiv catalog client and the crawl loop.
type ArxivConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Categories are the arXiv category codes OR-ed into the base query.
	Categories []string `yaml:"categories" mapstructure:"categories"`

	// MaxResults caps accepted papers per run; -1 means unlimited.
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`

	// BatchSize is both the page size requested from arXiv and the
	// sub-batch size handed to the sink (default 50).
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// FetchInterval is the pause between batches (0 disables it).
	FetchInterval time.Duration `yaml:"fetch_interval" mapstructure:"fetch_interval"`

	// StopThresholdDays stops the crawl once the batch's earliest record
	// is within this many days of the window start (default 1).
	StopThresholdDays float64 `yaml:"stop_threshold_days" mapstructure:"stop_threshold_days"`

	// MaxEmptyBatches bounds consecutive all-duplicate batches (default 5).
	MaxEmptyBatches int `yaml:"max_empty_batches" mapstructure:"max_empty_batches"`

	// RetryMaxAttempts bounds rate-limit retries per page (default 3).
	RetryMaxAttempts int `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt
	// (default 5s).
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// TimeFilter bounds the default window for initial crawls.
	TimeFilter TimeFilterConfig `yaml:"time_filter" mapstructure:"time_filter"`
}

// StoreConfig holds Milvus connection and index settings.
type StoreConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user,omitempty" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`

	// Collection is the collection holding the paper index entries.
	Collection string `yaml:"collection" mapstructure:"collection"`

	// VectorDim must match the embedding model's output width (default 1024).
	VectorDim int `yaml:"vector_dim" mapstructure:"vector_dim"`

	// HNSW index build and search parameters.
	HNSWM              int `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
	SearchEf           int `yaml:"search_ef" mapstructure:"search_ef"`
}

// EmbeddingConfig holds settings for the text-embedding service client.
type EmbeddingConfig struct {
	// Endpoint is the base URL of the embedding service.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// Model is the embedding model identifier (default "BAAI/bge-m3").
	Model string `yaml:"model" mapstructure:"model"`

	// BatchSize is the number of texts embedded per request (default 32).
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// Timeout is the per-request HTTP timeout (default 30s).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig holds the merge scorer's knobs.
type SearchConfig struct {
	// DefaultTopK is used when a caller passes no limit (default 5).
	DefaultTopK int `yaml:"default_top_k" mapstructure:"default_top_k"`

	// MaxTopK clamps caller-supplied limits (default 50).
	MaxTopK int `yaml:"max_top_k" mapstructure:"max_top_k"`

	// TitleWeight and AbstractWeight combine the two field similarities
	// (defaults 0.6 and 0.4).
	TitleWeight    float64 `yaml:"title_weight" mapstructure:"title_weight"`
	AbstractWeight float64 `yaml:"abstract_weight" mapstructure:"abstract_weight"`
}

// SnapshotConfig holds the CSV archive layout.
type SnapshotConfig struct {
	// Dir is the base directory for CSV snapshots.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// InitFilename is the full-harvest archive name (default "init_data.csv").
	InitFilename string `yaml:"init_filename" mapstructure:"init_filename"`

	// DailyDir is the subdirectory for incremental snapshots (default "daily").
	DailyDir string `yaml:"daily_dir" mapstructure:"daily_dir"`
}

// LedgerConfig holds the run-history database location.
type LedgerConfig struct {
	// Path is the SQLite file path (default "data/runs.db").
	Path string `yaml:"path" mapstructure:"path"`
}

// APIConfig holds the REST server settings.
type APIConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// LoggingConfig holds structured-logging settings for the server path.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// Config groups every component's configuration.
type Config struct {
	Arxiv     ArxivConfig     `yaml:"arxiv" mapstructure:"arxiv"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Snapshots SnapshotConfig  `yaml:"snapshots" mapstructure:"snapshots"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}
