package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"":        LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cadenced.log")
	l, err := New(&Config{
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    path,
		Component: "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Info("hello", "identity", "alice")
	l.Debug("suppressed below info")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["component"] != "test" || entry["identity"] != "alice" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.log")
	l, err := New(&Config{Format: FormatJSON, Output: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.WithComponent("enroll").Info("started")
	l.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"component":"enroll"`) {
		t.Errorf("child component missing from output: %s", data)
	}
}
