package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/collate"
	"vidbunch/internal/config"
	"vidbunch/internal/loader"
	"vidbunch/internal/logging"
)

var errBatchLimit = errors.New("batch limit reached")

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags datasetFlags
	var limit int
	var epochs int
	var showGomlx bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Load collated batches and report their shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if epochs < 1 {
				return errors.New("--epochs must be at least 1")
			}
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			ds, err := openDataset(runCtx, cfg, flags, logger)
			if err != nil {
				return err
			}

			shuffle := cfg.Loader.Shuffle && strings.EqualFold(flags.split, config.SplitTrain)
			ld, err := loader.New(ds, loader.Options{
				BatchSize: cfg.Loader.BatchSize,
				Shuffle:   shuffle,
				DropLast:  cfg.Loader.DropLast,
				Workers:   cfg.Loader.Workers,
				Seed:      cfg.Loader.Seed,
				WorkerInit: func(worker int, _ *rand.Rand) {
					logger.Debug("loader worker started", slog.Int(logging.FieldWorker, worker))
				},
				Logger: logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %d batches per epoch (batch_size=%d shuffle=%s drop_last=%s)\n",
				ds.String(), ld.NumBatches(), cfg.Loader.BatchSize, yesNo(shuffle), yesNo(cfg.Loader.DropLast))

			var rows [][]string
			delivered := 0
			start := time.Now()
			for epoch := 0; epoch < epochs; epoch++ {
				err := ld.Run(runCtx, func(b *collate.Batch) error {
					rows = append(rows, batchRow(epoch+1, len(rows), b, showGomlx))
					delivered++
					if limit > 0 && delivered >= limit {
						return errBatchLimit
					}
					return nil
				})
				if errors.Is(err, errBatchLimit) {
					break
				}
				if err != nil {
					return err
				}
			}

			headers := []string{"Epoch", "Batch", "Size", "Videos", "Labels"}
			if showGomlx {
				headers = append(headers, "gomlx")
			}
			fmt.Fprintln(out, renderTable(headers, rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft}))
			fmt.Fprintf(out, "Loaded %s batches in %s\n", humanize.Comma(int64(delivered)), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many batches (0 = whole epochs)")
	cmd.Flags().IntVar(&epochs, "epochs", 1, "Number of epochs to load")
	cmd.Flags().BoolVar(&showGomlx, "gomlx", false, "Also convert each batch to gomlx tensors")
	return cmd
}

func batchRow(epoch, index int, b *collate.Batch, withGomlx bool) []string {
	labels := make([]string, len(b.Labels))
	for i, l := range b.Labels {
		labels[i] = strconv.FormatInt(l, 10)
	}
	row := []string{
		strconv.Itoa(epoch),
		strconv.Itoa(index),
		strconv.Itoa(b.Size()),
		fmt.Sprint(b.Videos.Shape()),
		strings.Join(labels, " "),
	}
	if withGomlx {
		row = append(row, fmt.Sprint(b.VideosGomlx().Shape()))
	}
	return row
}
