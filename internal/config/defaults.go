package config

import "runtime"

const (
	defaultConfigPath     = "~/.config/vidbunch/config.toml"
	projectConfigName     = "vidbunch.toml"
	defaultLogDir         = "~/.local/share/vidbunch/logs"
	defaultCacheDir       = "~/.cache/vidbunch"
	defaultCut            = 1.0
	defaultFrameSize      = 224
	defaultSetting        = "train"
	defaultNumSegments    = 4
	defaultSegmentSize    = 4
	defaultBatchSize      = 32
	defaultFramePattern   = "%05d.jpg"
	defaultFrameIndexBase = 1
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	// IndexFileName is the metadata index stored under paths.cache_dir.
	IndexFileName = "meta.db"

	SplitTrain = "train"
	SplitValid = "valid"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Data: Data{
			Cut:            defaultCut,
			FrameSize:      defaultFrameSize,
			ReadFromFrames: true,
		},
		Sampling: Sampling{
			Setting:     defaultSetting,
			NumSegments: defaultNumSegments,
			SegmentSize: defaultSegmentSize,
		},
		Loader: Loader{
			BatchSize: defaultBatchSize,
			Shuffle:   true,
			Workers:   runtime.NumCPU(),
		},
		Media: Media{
			FramePattern:   defaultFramePattern,
			FrameIndexBase: defaultFrameIndexBase,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
