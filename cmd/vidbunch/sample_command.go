package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type sampleDraw struct {
	Indices       []int  `json:"indices"`
	CropBox       [4]int `json:"crop_box"`
	FlipH         bool   `json:"flip_h"`
	FlipV         bool   `json:"flip_v"`
	Brightness    int    `json:"brightness"`
	HueSaturation int    `json:"hue_saturation"`
}

func newSampleCommand(ctx *commandContext) *cobra.Command {
	var flags datasetFlags
	var seed uint64
	var draws int
	var asJSON jsonFlag

	cmd := &cobra.Command{
		Use:   "sample <row>",
		Short: "Show the frames and augmentation drawn for one clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("row must be an integer: %w", err)
			}
			if draws < 1 {
				return errors.New("--draws must be at least 1")
			}
			runCtx, cfg, logger, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			ds, err := openDataset(runCtx, cfg, flags, logger)
			if err != nil {
				return err
			}
			clip, err := ds.Meta(row)
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(seed, 0))
			results := make([]sampleDraw, 0, draws)
			for range draws {
				item, err := ds.Item(runCtx, row, rng)
				if err != nil {
					return err
				}
				p := item.Video.Params
				box := p.CropBox()
				results = append(results, sampleDraw{
					Indices:       item.Video.Indices,
					CropBox:       [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
					FlipH:         p.FlipH,
					FlipV:         p.FlipV,
					Brightness:    p.Brightness,
					HueSaturation: p.HueSaturation,
				})
			}
			if asJSON {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", clip.String(), ds.Policy().String())
			rows := make([][]string, 0, len(results))
			for i, d := range results {
				rows = append(rows, []string{
					strconv.Itoa(i),
					joinInts(d.Indices),
					fmt.Sprintf("(%d,%d)-(%d,%d)", d.CropBox[0], d.CropBox[1], d.CropBox[2], d.CropBox[3]),
					flipLabel(d.FlipH, d.FlipV),
					strconv.Itoa(d.Brightness),
					strconv.Itoa(d.HueSaturation),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Draw", "Frames", "Crop", "Flip", "Brightness", "Hue/Sat"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for train sampling")
	cmd.Flags().IntVarP(&draws, "draws", "n", 1, "Number of independent draws to show")
	asJSON.register(cmd, "draws")
	return cmd
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func flipLabel(h, v bool) string {
	switch {
	case h && v:
		return "h+v"
	case h:
		return "h"
	case v:
		return "v"
	default:
		return "-"
	}
}
