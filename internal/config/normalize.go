package config

import (
	"fmt"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSampling()
	c.normalizeLoader()
	c.normalizeMedia()
	c.normalizeLogging()
	return c.normalizeKeep()
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.root_path", &c.Paths.RootPath},
		{"paths.meta_train", &c.Paths.MetaTrain},
		{"paths.meta_valid", &c.Paths.MetaValid},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.cache_dir", &c.Paths.CacheDir},
	}
	for _, f := range fields {
		expanded, err := expandPath(strings.TrimSpace(*f.value))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	if c.Paths.CacheDir == "" {
		expanded, err := expandPath(defaultCacheDir)
		if err != nil {
			return fmt.Errorf("paths.cache_dir: %w", err)
		}
		c.Paths.CacheDir = expanded
	}
	return nil
}

func (c *Config) normalizeSampling() {
	setting := strings.ToLower(strings.TrimSpace(c.Sampling.Setting))
	switch setting {
	case "":
		setting = defaultSetting
	case "valid", "validation":
		setting = "eval"
	}
	c.Sampling.Setting = setting
}

func (c *Config) normalizeLoader() {
	if c.Loader.Workers <= 0 {
		c.Loader.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FramePattern = strings.TrimSpace(c.Media.FramePattern)
	if c.Media.FramePattern == "" {
		c.Media.FramePattern = defaultFramePattern
	}
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// normalizeKeep collapses the integer types TOML and callers may produce
// into int64 so validation and consumers see one representation.
func (c *Config) normalizeKeep() error {
	switch v := c.Data.Keep.(type) {
	case nil, float64, int64:
	case int:
		c.Data.Keep = int64(v)
	case int32:
		c.Data.Keep = int64(v)
	case float32:
		c.Data.Keep = float64(v)
	case string:
		if strings.TrimSpace(v) == "" || strings.EqualFold(strings.TrimSpace(v), "all") {
			c.Data.Keep = nil
			return nil
		}
		return configError(fmt.Sprintf("data.keep: unsupported string %q", v), nil)
	default:
		return configError(fmt.Sprintf("data.keep: unsupported type %T", v), nil)
	}
	return nil
}
