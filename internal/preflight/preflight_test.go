package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"vidbunch/internal/testsupport"
	"vidbunch/internal/vberr"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir(), unix.R_OK|unix.W_OK)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "read/write ok") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), unix.R_OK)
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing-directory failure, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f, unix.R_OK); result.Passed {
		t.Fatal("expected failure for file path")
	}
	if result := CheckReadableFile("file", f); !result.Passed {
		t.Fatalf("expected readable file to pass: %s", result.Detail)
	}
	if result := CheckReadableFile("dir", filepath.Dir(f)); result.Passed {
		t.Fatal("expected directory to fail the file check")
	}
}

func TestCheckWritableDirectoryCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if result := CheckWritableDirectory("cache", dir); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if err := Err(results); !errors.Is(err, vberr.ErrConfiguration) || !strings.Contains(err.Error(), "Root path") {
		t.Fatalf("expected root path failure, got %v", err)
	}

	testsupport.WriteDataset(t, cfg.Paths.RootPath, testsupport.FramePattern, 1, testsupport.Clips(2, 2, 4))
	testsupport.WriteMeta(t, cfg.Paths.MetaTrain, testsupport.Clips(2, 2, 4))
	testsupport.WriteMeta(t, cfg.Paths.MetaValid, testsupport.Clips(1, 1, 4))
	cfg.Media.FFmpegBinary = "no-such-ffmpeg"
	cfg.Media.FFprobeBinary = "no-such-ffprobe"

	results = RunAll(cfg)
	if err := Err(results); err != nil {
		t.Fatalf("expected frame-directory setup to pass without ffmpeg: %v", err)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "Root path,Train metadata,Valid metadata,Cache directory,Log directory,FFmpeg,FFprobe"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("checks = %s, want %s", got, want)
	}

	cfg.Data.ReadFromFrames = false
	if err := Err(RunAll(cfg)); err == nil || !strings.Contains(err.Error(), "FFmpeg") {
		t.Fatalf("expected ffmpeg to be required for encoded clips, got %v", err)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
