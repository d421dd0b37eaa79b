package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/pkg/api"
	"github.com/teslashibe/go-motionblend/pkg/report"
)

var encodeFlags struct {
	input  string
	offset int
	plot   string
	band   int
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode the phase and style of a clip window",
	Long: `Encodes the window of model length starting at --offset and prints its
latent style as JSON. --plot renders the window's phase trajectory.`,
	Example: `  motionblend encode --skeleton walk.bvh --input walk.bvh --plot phase.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		clip, err := loadClip(encodeFlags.input, p.Model().Skeleton())
		if err != nil {
			return err
		}
		win, err := clip.Slice(encodeFlags.offset, p.Model().WindowLength())
		if err != nil {
			return err
		}

		style, err := p.EncodeStyle(context.Background(), win)
		if err != nil {
			return err
		}

		if encodeFlags.plot != "" {
			plt, err := report.PhasePlot(style.Phase, encodeFlags.band)
			if err != nil {
				return err
			}
			if err := report.Save(plt, encodeFlags.plot); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(api.StyleResponse{
			Mean:   style.Latent.Mean,
			LogVar: style.Latent.LogVar,
			Phase:  style.Phase.At(style.Phase.Len() - 1),
		})
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	fl := encodeCmd.Flags()
	fl.StringVarP(&encodeFlags.input, "input", "i", "", "Clip to encode (BVH or JSON record)")
	fl.IntVar(&encodeFlags.offset, "offset", 0, "First frame of the window")
	fl.StringVar(&encodeFlags.plot, "plot", "", "Write a phase plot (.png, .svg, .pdf)")
	fl.IntVar(&encodeFlags.band, "band", -1, "Band to plot; -1 plots all bands")
	encodeCmd.MarkFlagRequired("input")
}
