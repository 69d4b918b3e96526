package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"xml", FormatText, true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")

	log, err := New(&Config{Level: LevelInfo, FilePath: path, Component: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello", "key", "value")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "hello") || !strings.Contains(content, "component=test") {
		t.Errorf("log file missing expected entry, got: %s", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	log, err := New(&Config{Level: LevelWarn, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("invisible")
	log.Info("also invisible")
	log.Warn("visible")
	log.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "invisible") {
		t.Error("below-threshold entries were written")
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("warn entry missing")
	}
}

func TestWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	log, err := New(&Config{Level: LevelInfo, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.WithComponent("sink").Info("scoped")
	log.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "component=sink") {
		t.Errorf("component attribute missing, got: %s", string(data))
	}
}
