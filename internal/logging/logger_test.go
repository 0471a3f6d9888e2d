package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidbunch/internal/config"
)

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	NewComponentLogger(logger, "loader").Info("batch ready", slog.Int("size", 32), slog.String("clip_id", "a b"))
	logger.Debug("hidden")

	line := buf.String()
	for _, fragment := range []string{" INFO loader: batch ready", "size=32", `clip_id="a b"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level: %q", line)
	}
}

func TestConsoleFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := New(Options{Level: "debug", Writer: &buf})
	logger.WithGroup("batch").Info("done", slog.Group("shape", slog.Int("b", 4)), Error(errors.New("bad thing")))
	out := buf.String()
	if !strings.Contains(out, "batch.shape.b=4") {
		t.Fatalf("expected flattened group key in %q", out)
	}
	if !strings.Contains(out, `batch.error="bad thing"`) {
		t.Fatalf("expected quoted error in %q", out)
	}
}

func TestJSONFormatAndFileTee(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", LogFileName)
	logger, closeLog, err := New(Options{Level: "info", Format: "console", Writer: &console, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeLog()
	WithContext(WithRunID(context.Background(), "run-1"), logger).Warn("slow read", slog.String(FieldClipID, "42"))

	if !strings.Contains(console.String(), "WARN slow read") {
		t.Fatalf("expected console output, got %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if record["level"] != "warn" || record["run_id"] != "run-1" || record["clip_id"] != "42" {
		t.Fatalf("unexpected JSON record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesUnderLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	var buf bytes.Buffer
	logger, closeLog, err := NewFromConfig(&cfg, &buf)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer closeLog()
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, LogFileName)); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestCloseReleasesLogFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), LogFileName)
	logger, closeLog, err := New(Options{Level: "info", Writer: &console, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("before close")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	logger.Info("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "before close") || strings.Contains(string(data), "after close") {
		t.Fatalf("unexpected log file content %q", data)
	}
	if !strings.Contains(console.String(), "after close") {
		t.Fatalf("console should keep logging after close, got %q", console.String())
	}
}

func TestNewWithoutFileHasNoopClose(t *testing.T) {
	_, closeLog, err := New(Options{Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestTee(t *testing.T) {
	if _, ok := Tee(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when all handlers are nil")
	}
	var a, b bytes.Buffer
	ha := slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn})
	hb := slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug})
	if Tee(nil, ha) != ha {
		t.Fatal("expected single handler to be returned unwrapped")
	}
	logger := slog.New(Tee(ha, hb)).With(slog.String("k", "v"))
	logger.Info("info only for b")
	if a.Len() != 0 {
		t.Fatalf("warn handler received info record: %q", a.String())
	}
	if !strings.Contains(b.String(), `"k":"v"`) {
		t.Fatalf("expected attrs propagated, got %q", b.String())
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(25)
	var emitted []int
	for done := 0; done <= 8; done++ {
		if s.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []int{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
}
