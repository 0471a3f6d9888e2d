package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/config"
	"vidbunch/internal/prepro"
)

func newAugmentMetaCommand(ctx *commandContext) *cobra.Command {
	var labelsPath string
	var videoDir string
	var extension string

	cmd := &cobra.Command{
		Use:   "augment-meta <input> <output>",
		Short: "Probe raw clips and write a full metadata table",
		Long: "Reads a raw clip list (id and template per row), resolves each template to a class id " +
			"through the labels file, probes every video with ffprobe for length, size and frame rate, " +
			"and writes the combined table as JSON records.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(labelsPath) == "" {
				return errors.New("--labels is required")
			}
			paths := make([]string, 0, 3)
			for _, raw := range []string{labelsPath, args[0], args[1]} {
				expanded, err := config.ExpandPath(strings.TrimSpace(raw))
				if err != nil {
					return fmt.Errorf("resolve %q: %w", raw, err)
				}
				paths = append(paths, expanded)
			}
			labels, err := prepro.ReadLabels(paths[0])
			if err != nil {
				return err
			}

			dir := strings.TrimSpace(videoDir)
			if dir == "" {
				dir = cfg.Paths.RootPath
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return fmt.Errorf("resolve video directory: %w", err)
			}

			progress := newProgressReporter(cmd.ErrOrStderr(), "Probing clips")
			table, err := prepro.Run(runCtx, paths[1], paths[2], prepro.Options{
				VideoDir:      dir,
				Extension:     extension,
				FFprobeBinary: cfg.Media.FFprobeBinary,
				Labels:        labels,
				Workers:       cfg.Loader.Workers,
				Progress:      progress.Update,
				Logger:        logger,
			})
			progress.Finish()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s clips across %s classes to %s\n",
				humanize.Comma(int64(table.Len())), humanize.Comma(int64(len(table.ClassCounts()))), paths[2])
			return nil
		},
	}

	cmd.Flags().StringVarP(&labelsPath, "labels", "l", "", "Labels file mapping templates to class ids")
	cmd.Flags().StringVar(&videoDir, "video-dir", "", "Directory of encoded clips (defaults to paths.root_path)")
	cmd.Flags().StringVar(&extension, "ext", prepro.DefaultExtension, "Video file extension")
	return cmd
}
