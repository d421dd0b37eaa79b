package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/internal/log"
	"github.com/teslashibe/go-motionblend/pkg/api"
	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/client"
	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/pipeline"
	"github.com/teslashibe/go-motionblend/pkg/report"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

type generateFlags struct {
	source, target string
	length         int
	schedule       float64
	stochastic     bool
	seed           uint64
	out            string
	plot           string
	weightsPlot    string
	server         string
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a transition between two clips",
	Long: `Generates a transition from the end of --source to the start of --target
and writes it as BVH. With --server the request runs on a motionblend server.`,
	Example: `  motionblend generate --skeleton walk.bvh --source walk.bvh --target run.bvh --length 30 --out t.bvh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := genFlags
		if !cmd.Flags().Changed("length") {
			f.length = cfg.Transition.Length
		}
		if !cmd.Flags().Changed("schedule") {
			f.schedule = cfg.Transition.PhaseSchedule
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if f.server != "" {
			return generateRemote(ctx, f)
		}
		return generateLocal(ctx, f)
	},
}

func generateLocal(ctx context.Context, f generateFlags) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	skel := p.Model().Skeleton()

	src, err := loadClip(f.source, skel)
	if err != nil {
		return err
	}
	dst, err := loadClip(f.target, skel)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Start:         src.Window,
		Target:        dst.Window,
		Length:        f.length,
		PhaseSchedule: f.schedule,
		Seed:          f.seed,
	}
	if f.stochastic {
		req.Noise = manifold.NoiseSampled
	}

	resp, err := p.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := writeSequence(skel, resp.Sequence, f.out); err != nil {
		return err
	}
	printMetrics(resp.ID, resp.Sequence.Len(), resp.Metrics)

	if f.plot != "" {
		plt, err := report.RootPathPlot(resp.Sequence)
		if err != nil {
			return err
		}
		if err := report.Save(plt, f.plot); err != nil {
			return err
		}
	}
	if f.weightsPlot != "" {
		plt, err := report.WeightsPlot(resp.Result.Weights, resp.Sequence.FrameTime)
		if err != nil {
			return err
		}
		if err := report.Save(plt, f.weightsPlot); err != nil {
			return err
		}
	}
	return nil
}

func generateRemote(ctx context.Context, f generateFlags) error {
	skel, _, err := loadSkeleton(cfg.SkeletonPath)
	if err != nil {
		return err
	}
	src, err := loadClip(f.source, skel)
	if err != nil {
		return err
	}
	dst, err := loadClip(f.target, skel)
	if err != nil {
		return err
	}
	srcRec, err := motion.ToRecord(src.Window, skel)
	if err != nil {
		return err
	}
	dstRec, err := motion.ToRecord(dst.Window, skel)
	if err != nil {
		return err
	}

	c, err := client.New(f.server)
	if err != nil {
		return err
	}
	resp, err := c.GenerateTransition(ctx, api.TransitionRequest{
		StartMotion:   srcRec,
		TargetMotion:  dstRec,
		Length:        &f.length,
		PhaseSchedule: &f.schedule,
		Stochastic:    f.stochastic,
		Seed:          f.seed,
	})
	if err != nil {
		return err
	}

	seq := motion.Sequence{FrameTime: resp.FrameTime}
	for i, ch := range resp.TransitionFrames {
		frame, err := motion.FromChannels(skel, ch)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		seq.Frames = append(seq.Frames, frame)
	}
	if err := writeSequence(skel, seq, f.out); err != nil {
		return err
	}
	printMetrics(resp.ID, seq.Len(), resp.QualityMetrics)
	return nil
}

// writeSequence writes BVH to out, or to stdout when out is empty or "-".
// A .json out writes the external record form instead.
func writeSequence(skel *skeleton.Skeleton, seq motion.Sequence, out string) error {
	if out == "" || out == "-" {
		return bvh.Write(os.Stdout, skel, seq.Frames, seq.FrameTime)
	}
	if strings.HasSuffix(strings.ToLower(out), ".json") {
		rec, err := motion.ToRecord(seq, skel)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	}
	if err := bvh.WriteFile(out, skel, seq.Frames, seq.FrameTime); err != nil {
		return err
	}
	log.Info("transition written", "path", out, "frames", seq.Len())
	return nil
}

func printMetrics(id string, frames int, m transition.Metrics) {
	fmt.Fprintf(os.Stderr, "transition %s: %d frames\n", id, frames)
	fmt.Fprintf(os.Stderr, "  smoothness           %.3f\n", m.Smoothness)
	fmt.Fprintf(os.Stderr, "  naturalness          %.3f\n", m.Naturalness)
	fmt.Fprintf(os.Stderr, "  style preservation   %.3f\n", m.StylePreservation)
	fmt.Fprintf(os.Stderr, "  temporal consistency %.3f\n", m.TemporalConsistency)
}

func init() {
	rootCmd.AddCommand(generateCmd)
	fl := generateCmd.Flags()
	fl.StringVar(&genFlags.source, "source", "", "Clip to transition from (BVH or JSON record)")
	fl.StringVar(&genFlags.target, "target", "", "Clip to transition to (BVH or JSON record)")
	fl.IntVarP(&genFlags.length, "length", "n", 30, "Transition length in frames")
	fl.Float64Var(&genFlags.schedule, "schedule", 1, "Phase schedule strength in [0, 1]")
	fl.BoolVar(&genFlags.stochastic, "stochastic", false, "Sample latent noise")
	fl.Uint64Var(&genFlags.seed, "seed", 0, "Noise seed for --stochastic")
	fl.StringVarP(&genFlags.out, "out", "o", "", "Output file (.bvh or .json); stdout when empty")
	fl.StringVar(&genFlags.plot, "plot", "", "Write a root path plot (.png, .svg, .pdf)")
	fl.StringVar(&genFlags.weightsPlot, "weights-plot", "", "Write a blend weight plot")
	fl.StringVar(&genFlags.server, "server", "", "Run on a motionblend server, e.g. http://localhost:8080")
	generateCmd.MarkFlagRequired("source")
	generateCmd.MarkFlagRequired("target")
}
