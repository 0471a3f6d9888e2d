package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains dataset and working directory locations.
type Paths struct {
	RootPath  string `toml:"root_path"`
	MetaTrain string `toml:"meta_train"`
	MetaValid string `toml:"meta_valid"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Data contains dataset construction settings.
type Data struct {
	Cut            float64 `toml:"cut"`
	FrameSize      int     `toml:"frame_size"`
	ReadFromFrames bool    `toml:"read_from_frames"`
	// Keep is nil (everything), a float fraction in [0,1] (stratified), or an
	// integer row count >= 1 (head of the table).
	Keep any `toml:"keep"`
}

// Sampling contains temporal sampling settings.
type Sampling struct {
	Setting     string `toml:"setting"`
	NumSegments int    `toml:"num_segments"`
	SegmentSize int    `toml:"segment_size"`
}

// Loader contains batch loader settings.
type Loader struct {
	BatchSize int    `toml:"batch_size"`
	Shuffle   bool   `toml:"shuffle"`
	DropLast  bool   `toml:"drop_last"`
	Workers   int    `toml:"workers"`
	Seed      uint64 `toml:"seed"`
}

// Media contains frame source settings.
type Media struct {
	FramePattern   string `toml:"frame_pattern"`
	FrameIndexBase int    `toml:"frame_index_base"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidbunch.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Data     Data     `toml:"data"`
	Sampling Sampling `toml:"sampling"`
	Loader   Loader   `toml:"loader"`
	Media    Media    `toml:"media"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The second result is the resolved
// path and the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// Decode parses TOML data over cfg, leaving absent keys untouched.
func Decode(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return configError("parse config", err)
	}
	return nil
}

// Finalize normalizes and validates a config built in code.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, configError(fmt.Sprintf("config path %s is a directory", expanded), nil)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the log and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MetaPath returns the metadata file configured for split ("train" or "valid").
func (c *Config) MetaPath(split string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(split)) {
	case SplitTrain:
		return c.Paths.MetaTrain, nil
	case SplitValid, "eval", "validation":
		return c.Paths.MetaValid, nil
	default:
		return "", configError(fmt.Sprintf("unknown split %q (want %s or %s)", split, SplitTrain, SplitValid), nil)
	}
}

// IndexPath returns the SQLite metadata index for split under the cache
// directory, e.g. train-meta.db.
func (c *Config) IndexPath(split string) string {
	split = strings.ToLower(strings.TrimSpace(split))
	if split == "" {
		split = SplitTrain
	}
	return filepath.Join(c.Paths.CacheDir, split+"-"+IndexFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
