package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"vidbunch/internal/config"
	"vidbunch/internal/dataset"
	"vidbunch/internal/media"
	"vidbunch/internal/sampler"
)

// datasetFlags are the selection flags shared by commands that open a dataset.
type datasetFlags struct {
	split string
	keep  string
	meta  string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.split, "split", "s", config.SplitTrain, "Dataset split (train or valid)")
	cmd.Flags().StringVar(&f.keep, "keep", "", "Override data.keep (fraction like 0.1 or row count like 500)")
	cmd.Flags().StringVar(&f.meta, "meta", "", "Metadata file to read instead of the configured split file")
}

// settingForSplit returns the configured setting for the train split and
// eval for anything else.
func settingForSplit(cfg *config.Config, split string) (sampler.Setting, error) {
	if _, err := cfg.MetaPath(split); err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(split), config.SplitTrain) {
		return sampler.ParseSetting(cfg.Sampling.Setting)
	}
	return sampler.SettingEval, nil
}

func datasetOptions(cfg *config.Config, flags datasetFlags) (dataset.Options, error) {
	setting, err := settingForSplit(cfg, flags.split)
	if err != nil {
		return dataset.Options{}, err
	}
	metaPath := strings.TrimSpace(flags.meta)
	if metaPath == "" {
		metaPath, _ = cfg.MetaPath(flags.split)
	} else if metaPath, err = config.ExpandPath(metaPath); err != nil {
		return dataset.Options{}, fmt.Errorf("resolve metadata path: %w", err)
	}

	var keepValue any = cfg.Data.Keep
	if raw := strings.TrimSpace(flags.keep); raw != "" {
		keepValue = raw
	}
	keep, err := dataset.ParseKeep(keepValue)
	if err != nil {
		return dataset.Options{}, err
	}

	return dataset.Options{
		Cut:         cfg.Data.Cut,
		FrameSize:   cfg.Data.FrameSize,
		Setting:     setting,
		Keep:        keep,
		NumSegments: cfg.Sampling.NumSegments,
		SegmentSize: cfg.Sampling.SegmentSize,
		MetaPath:    metaPath,
	}, nil
}

func newSource(cfg *config.Config, logger *slog.Logger) media.Source {
	return media.NewSource(media.Options{
		Root:           cfg.Paths.RootPath,
		ReadFromFrames: cfg.Data.ReadFromFrames,
		FramePattern:   cfg.Media.FramePattern,
		FrameIndexBase: cfg.Media.FrameIndexBase,
		FFmpegBinary:   cfg.Media.FFmpegBinary,
		FFprobeBinary:  cfg.Media.FFprobeBinary,
		Logger:         logger,
	})
}

func openDataset(ctx context.Context, cfg *config.Config, flags datasetFlags, logger *slog.Logger) (*dataset.Dataset, error) {
	opts, err := datasetOptions(cfg, flags)
	if err != nil {
		return nil, err
	}
	return dataset.Open(ctx, opts, newSource(cfg, logger), logger)
}
