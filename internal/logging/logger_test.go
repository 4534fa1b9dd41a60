// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("backend", "memory").Msg("storage ready")

	out := buf.String()
	if !strings.Contains(out, `"message":"storage ready"`) {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"backend":"memory"`) {
		t.Errorf("expected field in output, got: %s", out)
	}
}

func TestInitStampsServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf, Service: "saveearthride", Version: "1.2.3"})
	defer Init(DefaultConfig())

	Warn().Msg("sheet quota low")

	out := buf.String()
	if !strings.Contains(out, `"service":"saveearthride"`) {
		t.Errorf("expected service field, got: %s", out)
	}
	if !strings.Contains(out, `"version":"1.2.3"`) {
		t.Errorf("expected version field, got: %s", out)
	}
	if strings.Contains(out, `"time"`) {
		t.Errorf("expected no timestamp when Timestamp is false, got: %s", out)
	}
}

func TestInitLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("dropped")
	Error().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info event should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("error event missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{" Debug ", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}
