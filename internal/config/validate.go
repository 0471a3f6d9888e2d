package config

import (
	"fmt"
	"strings"

	"vidbunch/internal/vberr"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateData() error {
	if c.Data.Cut < 0 || c.Data.Cut > 1 {
		return configError(fmt.Sprintf("data.cut must be between 0 and 1, got %v", c.Data.Cut), nil)
	}
	if c.Data.FrameSize <= 0 {
		return configError("data.frame_size must be positive", nil)
	}
	switch v := c.Data.Keep.(type) {
	case float64:
		if v < 0 || v > 1 {
			return configError(fmt.Sprintf("data.keep fraction must be between 0 and 1, got %v", v), nil)
		}
	case int64:
		if v < 1 {
			return configError(fmt.Sprintf("data.keep count must be at least 1, got %d", v), nil)
		}
	}
	return nil
}

func (c *Config) validateSampling() error {
	switch c.Sampling.Setting {
	case "train", "eval":
	default:
		return configError(fmt.Sprintf("sampling.setting must be train or eval, got %q", c.Sampling.Setting), nil)
	}
	if c.Sampling.NumSegments <= 0 {
		return configError("sampling.num_segments must be positive", nil)
	}
	if c.Sampling.SegmentSize < 1 {
		return configError("sampling.segment_size must be at least 1", nil)
	}
	return nil
}

func (c *Config) validateLoader() error {
	if c.Loader.BatchSize <= 0 {
		return configError("loader.batch_size must be positive", nil)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.FrameIndexBase < 0 {
		return configError("media.frame_index_base must not be negative", nil)
	}
	if got := fmt.Sprintf(c.Media.FramePattern, 1); strings.Contains(got, "%!") {
		return configError(fmt.Sprintf("media.frame_pattern %q has no index verb", c.Media.FramePattern), nil)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configError(fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format), nil)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configError(fmt.Sprintf("logging.level %q is not recognized", c.Logging.Level), nil)
	}
	return nil
}

func configError(msg string, err error) error {
	return vberr.Wrap(vberr.ErrConfiguration, "config", "load", msg, err)
}
