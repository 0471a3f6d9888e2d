package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidbunch/internal/dataset"
)

type inspectClass struct {
	LID   int    `json:"lid"`
	Label string `json:"label"`
	Clips int    `json:"clips"`
}

type inspectReport struct {
	MetaPath   string         `json:"meta_path"`
	Setting    string         `json:"setting"`
	Keep       string         `json:"keep"`
	Rows       int            `json:"rows"`
	NumClasses int            `json:"num_classes"`
	Shape      []int          `json:"shape"`
	Classes    []inspectClass `json:"classes"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var flags datasetFlags
	var asJSON jsonFlag

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a dataset split and its class balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			ds, err := openDataset(runCtx, cfg, flags, logger)
			if err != nil {
				return err
			}
			report := buildInspectReport(ds)
			if asJSON {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ds.String())
			fmt.Fprintln(out, renderSummary([][2]string{
				{"Metadata", report.MetaPath},
				{"Setting", report.Setting},
				{"Keep", report.Keep},
				{"Clips", humanize.Comma(int64(report.Rows))},
				{"Classes", fmt.Sprintf("%s retained of %s", humanize.Comma(int64(len(report.Classes))), humanize.Comma(int64(report.NumClasses)))},
				{"Sampling", ds.Policy().String()},
			}))

			rows := make([][]string, 0, len(report.Classes))
			for _, c := range report.Classes {
				rows = append(rows, []string{strconv.Itoa(c.LID), c.Label, humanize.Comma(int64(c.Clips))})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"LID", "Label", "Clips"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	flags.register(cmd)
	asJSON.register(cmd, "summary")
	return cmd
}

func buildInspectReport(ds *dataset.Dataset) inspectReport {
	opts := ds.Options()
	counts := ds.ClassCounts()
	classes := ds.Classes()
	slices.Sort(classes)

	report := inspectReport{
		MetaPath:   opts.MetaPath,
		Setting:    string(opts.Setting),
		Keep:       opts.Keep.String(),
		Rows:       ds.Len(),
		NumClasses: ds.NumClasses(),
		Shape:      ds.Shape(),
		Classes:    make([]inspectClass, 0, len(classes)),
	}
	for _, lid := range classes {
		label, _ := ds.LabelFor(lid)
		report.Classes = append(report.Classes, inspectClass{LID: lid, Label: label, Clips: counts[lid]})
	}
	return report
}
