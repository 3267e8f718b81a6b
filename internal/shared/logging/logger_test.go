package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewWithWriterTagsSubsystem(t *testing.T) {
	t.Setenv("SAFEPAW_LOG_FORMAT", "")
	t.Setenv("SAFEPAW_LOG_LEVEL", "info")

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "multipass")
	logger.Debug("dropped")
	logger.Info("kept", "vm", "agent-1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal(lines[0], &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["subsystem"] != "multipass" {
		t.Fatalf("subsystem = %v", record["subsystem"])
	}
	if record["vm"] != "agent-1" {
		t.Fatalf("vm = %v", record["vm"])
	}
}
