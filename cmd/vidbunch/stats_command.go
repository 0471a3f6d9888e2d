package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/config"
	"vidbunch/internal/fileutil"
	"vidbunch/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var flags datasetFlags
	var framesPerClip int
	var outPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute per-channel pixel mean and variance over a split",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			ds, err := openDataset(runCtx, cfg, flags, logger)
			if err != nil {
				return err
			}

			progress := newProgressReporter(cmd.ErrOrStderr(), "Reading clips")
			summary, err := stats.Gather(runCtx, ds.Table(), newSource(cfg, logger), stats.Options{
				Workers:       cfg.Loader.Workers,
				FramesPerClip: framesPerClip,
				Progress:      progress.Update,
				Logger:        logger,
			})
			progress.Finish()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				return stats.WriteJSON(cmd.OutOrStdout(), summary)
			}
			if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			err = fileutil.WriteAtomic(runCtx, target, func(w io.Writer) error {
				return stats.WriteJSON(w, summary)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote statistics over %s pixels to %s\n",
				humanize.Comma(int64(summary.Count)), target)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&framesPerClip, "frames-per-clip", 0, "Evenly spaced frames to read per clip (0 = all)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the statistics JSON here instead of stdout")
	return cmd
}
