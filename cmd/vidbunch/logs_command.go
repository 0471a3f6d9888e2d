package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/logging"
	"vidbunch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var runID, component, level string
	var last bool
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines, optionally for one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.logPath()
			if err != nil {
				return err
			}
			filter := logs.Filter{
				RunID:     strings.TrimSpace(runID),
				Component: strings.TrimSpace(component),
			}
			if strings.TrimSpace(level) != "" {
				filter.MinLevel = logging.ParseLevel(level)
			}
			if last && filter.RunID == "" {
				runs, err := logs.Runs(path)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs logged yet")
					return nil
				}
				filter.RunID = runs[len(runs)-1].RunID
			}

			entries, err := logs.Tail(path, logs.TailOptions{Limit: limit, Filter: filter})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintln(out, e.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only show lines from this run id")
	cmd.Flags().BoolVar(&last, "last", false, "Only show lines from the most recent run")
	cmd.Flags().StringVar(&component, "component", "", "Only show lines from this component")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of trailing lines (0 = all)")

	cmd.AddCommand(newLogsRunsCommand(ctx))
	return cmd
}

func newLogsRunsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List logged runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.logPath()
			if err != nil {
				return err
			}
			runs, err := logs.Runs(path)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					humanize.Time(r.Start),
					r.End.Sub(r.Start).Round(time.Second).String(),
					strconv.Itoa(r.Lines),
					strconv.Itoa(r.Warnings),
					strconv.Itoa(r.Errors),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Duration", "Lines", "Warnings", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func (c *commandContext) logPath() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Paths.LogDir, logging.LogFileName), nil
}
