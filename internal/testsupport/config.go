package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidbunch/internal/config"
)

// FramePattern is the frame file pattern used by generated test configs.
const FramePattern = "%05d.png"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Frames are small (32px) and batches tiny so tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RootPath = filepath.Join(base, "frames")
	cfgVal.Paths.MetaTrain = filepath.Join(base, "train.json")
	cfgVal.Paths.MetaValid = filepath.Join(base, "valid.json")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Data.FrameSize = 32
	cfgVal.Sampling.NumSegments = 2
	cfgVal.Sampling.SegmentSize = 2
	cfgVal.Loader.BatchSize = 2
	cfgVal.Loader.Workers = 2
	cfgVal.Media.FramePattern = FramePattern

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithFrameSize overrides the output frame size.
func WithFrameSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Data.FrameSize = size
	}
}

// WithSegments overrides the sampling layout.
func WithSegments(numSegments, segmentSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sampling.NumSegments = numSegments
		b.cfg.Sampling.SegmentSize = segmentSize
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteStub(b.t, binDir, name, "exit 0")
		}
		prependPath(b.t, binDir)
	}
}

// WithStubScript installs a named stub running script and points the config
// at it when the name is ffmpeg or ffprobe.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		path := WriteStub(b.t, filepath.Join(b.baseDir, "bin"), name, script)
		switch name {
		case "ffmpeg":
			b.cfg.Media.FFmpegBinary = path
		case "ffprobe":
			b.cfg.Media.FFprobeBinary = path
		}
	}
}

func prependPath(t testing.TB, dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
