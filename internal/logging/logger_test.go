// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"INFO", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("pkg_name", "com.example.app").Msg("app synced")

	out := buf.String()
	if !strings.Contains(out, `"pkg_name":"com.example.app"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"app synced"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Warn().Msg("credential refresh retried")

	if !strings.Contains(buf.String(), "credential refresh retried") {
		t.Errorf("test logger did not capture message: %q", buf.String())
	}
}

func TestSlogHandlerWritesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	slogger := slog.New(NewSlogHandler())
	slogger.Info("service started", "service", "sync-manager")

	out := buf.String()
	if !strings.Contains(out, "service started") {
		t.Errorf("expected message via slog bridge, got %q", out)
	}
	if !strings.Contains(out, `"service":"sync-manager"`) {
		t.Errorf("expected attr via slog bridge, got %q", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	slogger := slog.New(NewSlogHandler()).WithGroup("sync")
	slogger.Error("wave failed", "wave", int64(3))

	if !strings.Contains(buf.String(), `"sync.wave":3`) {
		t.Errorf("expected grouped attr key, got %q", buf.String())
	}
}
