package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithFormat_JSONCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithFormat("info", "json", &buf).WithProvider("openai")

	log.Info("fetched", "status", "healthy")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["provider"] != "openai" {
		t.Errorf("provider field = %v, want openai", entry["provider"])
	}
	if entry["service"] != "cost-console" {
		t.Errorf("service field = %v, want cost-console", entry["service"])
	}
}

func TestNewWithFormat_TextAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithFormat("warn", "text", &buf)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text formatted warn record, got: %s", out)
	}
}
