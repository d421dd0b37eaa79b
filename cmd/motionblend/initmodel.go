package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/internal/log"
	"github.com/teslashibe/go-motionblend/pkg/model"
)

var initFlags struct {
	out    string
	seed   uint64
	window int
	bands  int
	latent int
	hidden int
}

var initModelCmd = &cobra.Command{
	Use:   "init-model",
	Short: "Write a freshly initialized model for a skeleton",
	Long: `Builds an untrained model for the configured skeleton and writes its
weights file. When the skeleton comes from a BVH file its first frame becomes
the reference pose.`,
	Example: `  motionblend init-model --skeleton walk.bvh --out model.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skel, clip, err := loadSkeleton(cfg.SkeletonPath)
		if err != nil {
			return err
		}

		mc := model.DefaultConfig()
		fl := cmd.Flags()
		if fl.Changed("window") {
			mc.Phase.WindowLength = initFlags.window
		}
		if fl.Changed("bands") {
			mc.Phase.Bands = initFlags.bands
			mc.Manifold.Bands = initFlags.bands
		}
		if fl.Changed("latent") {
			mc.Manifold.Latent = initFlags.latent
		}
		if fl.Changed("hidden") {
			mc.Phase.Hidden = initFlags.hidden
			mc.Manifold.Hidden = initFlags.hidden
		}

		m, err := model.New(skel, mc, initFlags.seed)
		if err != nil {
			return err
		}
		if clip != nil && clip.Len() > 0 {
			if m, err = m.WithReference(clip.Frames[0]); err != nil {
				return err
			}
		}
		if err := m.SaveFile(initFlags.out); err != nil {
			return err
		}
		log.Info("model written",
			"path", initFlags.out,
			"joints", skel.NumJoints(),
			"params", m.NumParams(),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initModelCmd)
	fl := initModelCmd.Flags()
	fl.StringVarP(&initFlags.out, "out", "o", "model.json", "Weights file to write")
	fl.Uint64Var(&initFlags.seed, "seed", 1, "Initialization seed")
	fl.IntVar(&initFlags.window, "window", 0, "Phase window length in frames")
	fl.IntVar(&initFlags.bands, "bands", 0, "Number of phase bands")
	fl.IntVar(&initFlags.latent, "latent", 0, "Latent dimension")
	fl.IntVar(&initFlags.hidden, "hidden", 0, "Hidden layer width")
}
