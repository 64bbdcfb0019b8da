// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the structured logger used by the server path.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// New constructs a logger per the logging config. w may be nil, in which
// case the logger writes to stdout.
func New(cfg types.LoggingConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "arxiv-scout")
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
