// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pdiddy/arxiv-scout/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" Debug ", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.raw); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(types.LoggingConfig{Level: "info", Format: "text"}, &buf)

	log.Info("starting", "port", 8000)

	out := buf.String()
	if !strings.Contains(out, "service=arxiv-scout") {
		t.Errorf("missing service attribute: %q", out)
	}
	if !strings.Contains(out, "port=8000") {
		t.Errorf("missing field: %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(types.LoggingConfig{Level: "info", Format: "json"}, &buf)

	log.Info("starting")

	out := buf.String()
	if !strings.Contains(out, `"service":"arxiv-scout"`) {
		t.Errorf("missing service attribute: %q", out)
	}
	if !strings.HasPrefix(out, "{") {
		t.Errorf("not JSON output: %q", out)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(types.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	log.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info emitted at warn level: %q", buf.String())
	}

	log.Warn("loud")
	if buf.Len() == 0 {
		t.Error("warn suppressed at warn level")
	}
}
