package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidbunch/internal/config"
	"vidbunch/internal/meta"
	"vidbunch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	train      meta.Table
	valid      meta.Table
}

// setupCLITestEnv writes six 8-frame training clips over three classes, three
// validation clips, and a config file pointing at them.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	train := testsupport.Clips(6, 3, 8)
	valid := testsupport.Clips(3, 3, 8)
	for i := range valid {
		valid[i].ID = fmt.Sprintf("%d", 2000+i)
		valid[i].Path = valid[i].ID
	}
	testsupport.WriteDataset(t, cfg.Paths.RootPath, cfg.Media.FramePattern, cfg.Media.FrameIndexBase, append(append(meta.Table{}, train...), valid...))
	testsupport.WriteMeta(t, cfg.Paths.MetaTrain, train)
	testsupport.WriteMeta(t, cfg.Paths.MetaValid, valid)

	configPath := filepath.Join(base, "vidbunch.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		train:      train,
		valid:      valid,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd, cmdCtx := newRootCommand()
	t.Cleanup(func() {
		if err := cmdCtx.close(); err != nil {
			t.Errorf("close run log: %v", err)
		}
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nroot_path = %q\nmeta_train = %q\nmeta_valid = %q\nlog_dir = %q\ncache_dir = %q\n\n",
		cfg.Paths.RootPath, cfg.Paths.MetaTrain, cfg.Paths.MetaValid, cfg.Paths.LogDir, cfg.Paths.CacheDir)
	fmt.Fprintf(&b, "[data]\ncut = %.1f\nframe_size = %d\nread_from_frames = %t\n\n",
		cfg.Data.Cut, cfg.Data.FrameSize, cfg.Data.ReadFromFrames)
	fmt.Fprintf(&b, "[sampling]\nsetting = %q\nnum_segments = %d\nsegment_size = %d\n\n",
		cfg.Sampling.Setting, cfg.Sampling.NumSegments, cfg.Sampling.SegmentSize)
	fmt.Fprintf(&b, "[loader]\nbatch_size = %d\nshuffle = %t\nworkers = %d\nseed = %d\n\n",
		cfg.Loader.BatchSize, cfg.Loader.Shuffle, cfg.Loader.Workers, cfg.Loader.Seed)
	fmt.Fprintf(&b, "[media]\nframe_pattern = %q\nframe_index_base = %d\nffmpeg_binary = %q\nffprobe_binary = %q\n\n",
		cfg.Media.FramePattern, cfg.Media.FrameIndexBase, cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)
	fmt.Fprintf(&b, "[logging]\nformat = %q\nlevel = %q\n", cfg.Logging.Format, cfg.Logging.Level)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
