// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the arxiv-scout configuration from YAML, environment
// variables, and built-in defaults, in ascending precedence of defaults,
// file, then environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-scout/internal/arxiv"
	"github.com/pdiddy/arxiv-scout/internal/embed"
	"github.com/pdiddy/arxiv-scout/internal/search"
	"github.com/pdiddy/arxiv-scout/internal/store"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// Load reads configuration into a Config. cfgFile may be empty, in which
// case arxiv-scout.yaml is looked up in the working directory and
// ~/.config/arxiv-scout/. A missing config file is fine; defaults and
// ARXIV_SCOUT_* environment variables still apply. An explicitly named
// file that cannot be read is an error.
func Load(cfgFile string) (*types.Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("arxiv-scout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "arxiv-scout"))
		}
	}

	v.SetEnvPrefix("ARXIV_SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.user_agent", "arxiv-scout/0.1")
	v.SetDefault("arxiv.categories", arxiv.DefaultCategories)
	v.SetDefault("arxiv.max_results", types.Unlimited)
	v.SetDefault("arxiv.batch_size", 50)
	v.SetDefault("arxiv.fetch_interval", "0s")
	v.SetDefault("arxiv.stop_threshold_days", 1.0)
	v.SetDefault("arxiv.max_empty_batches", 5)
	v.SetDefault("arxiv.retry_max_attempts", 3)
	v.SetDefault("arxiv.retry_base_delay", "5s")
	v.SetDefault("arxiv.time_filter.enabled", false)
	v.SetDefault("arxiv.time_filter.mode", "days")
	v.SetDefault("arxiv.time_filter.value", 2)

	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 19530)
	v.SetDefault("store.collection", store.DefaultCollection)
	v.SetDefault("store.vector_dim", store.DefaultVectorDim)
	v.SetDefault("store.hnsw_m", 16)
	v.SetDefault("store.hnsw_ef_construction", 200)
	v.SetDefault("store.search_ef", 128)

	v.SetDefault("embedding.endpoint", "http://localhost:9380")
	v.SetDefault("embedding.model", embed.DefaultModel)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.timeout", "30s")

	v.SetDefault("search.default_top_k", search.DefaultTopK)
	v.SetDefault("search.max_top_k", search.DefaultMaxTopK)
	v.SetDefault("search.title_weight", search.DefaultTitleWeight)
	v.SetDefault("search.abstract_weight", search.DefaultAbstractWeight)

	v.SetDefault("snapshots.dir", "data")
	v.SetDefault("snapshots.init_filename", "init_data.csv")
	v.SetDefault("snapshots.daily_dir", "daily")

	v.SetDefault("ledger.path", "data/runs.db")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
