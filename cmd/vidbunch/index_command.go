package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/config"
	"vidbunch/internal/logging"
	"vidbunch/internal/metastore"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the SQLite metadata index",
	}
	indexCmd.AddCommand(newIndexBuildCommand(ctx))
	indexCmd.AddCommand(newIndexStatusCommand(ctx))
	return indexCmd
}

func indexTarget(cfg *config.Config, split, out string) (string, error) {
	if _, err := cfg.MetaPath(split); err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return cfg.IndexPath(split), nil
	}
	return config.ExpandPath(strings.TrimSpace(out))
}

func newIndexBuildCommand(ctx *commandContext) *cobra.Command {
	var split, outPath, source string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Import a split's metadata file into the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			target, err := indexTarget(cfg, split, outPath)
			if err != nil {
				return err
			}
			src := strings.TrimSpace(source)
			if src == "" {
				src, _ = cfg.MetaPath(split)
			} else if src, err = config.ExpandPath(src); err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}

			imp, err := metastore.Build(runCtx, target, src)
			if err != nil {
				return err
			}
			logging.NewComponentLogger(logger, "index").Info("metadata indexed",
				slog.String("import_id", imp.ID),
				slog.String("source", imp.SourcePath),
				slog.Int("rows", imp.Rows),
				slog.String("index", target),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s clips in %s classes from %s into %s (import %s)\n",
				humanize.Comma(int64(imp.Rows)), humanize.Comma(int64(imp.Classes)), imp.SourcePath, target, imp.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&split, "split", "s", config.SplitTrain, "Dataset split (train or valid)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Index file (defaults to <cache_dir>/<split>-meta.db)")
	cmd.Flags().StringVar(&source, "source", "", "Metadata file to import (defaults to the split's file)")
	return cmd
}

func newIndexStatusCommand(ctx *commandContext) *cobra.Command {
	var split, outPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last import and per-class counts of an index",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, _, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			target, err := indexTarget(cfg, split, outPath)
			if err != nil {
				return err
			}
			store, err := metastore.Open(runCtx, target)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			last, err := store.LastImport(runCtx)
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Fprintf(out, "Index %s is empty; run `vidbunch index build`\n", target)
				return nil
			}
			fmt.Fprintln(out, renderSummary([][2]string{
				{"Index", store.Path()},
				{"Import", last.ID},
				{"Source", last.SourcePath},
				{"Imported", humanize.Time(last.ImportedAt)},
				{"Clips", humanize.Comma(int64(last.Rows))},
			}))

			counts, err := store.ClassCounts(runCtx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{strconv.Itoa(c.LID), c.Label, humanize.Comma(int64(c.Count))})
			}
			fmt.Fprintln(out, renderTable([]string{"LID", "Label", "Clips"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&split, "split", "s", config.SplitTrain, "Dataset split (train or valid)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Index file (defaults to <cache_dir>/<split>-meta.db)")
	return cmd
}
