// Package report renders phase trajectories, blend weights and root paths
// as plots for inspecting generated transitions.
package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
)

// Default figure size.
const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

// ErrEmpty is returned when there is nothing to plot.
var ErrEmpty = errors.New("report: nothing to plot")

// PhasePlot plots the wrapped phase angle and amplitude of one band over
// time. A negative band plots every band's angle.
func PhasePlot(traj phase.Trajectory, band int) (*plot.Plot, error) {
	if traj.Len() == 0 {
		return nil, ErrEmpty
	}
	if band >= traj.Bands() {
		return nil, fmt.Errorf("report: band %d out of range [0, %d)", band, traj.Bands())
	}

	p := plot.New()
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Phase (rad)"

	bands := []int{band}
	if band < 0 {
		p.Title.Text = "Phase, all bands"
		bands = bands[:0]
		for b := 0; b < traj.Bands(); b++ {
			bands = append(bands, b)
		}
	} else {
		p.Title.Text = fmt.Sprintf("Phase, band %d", band)
	}

	for i, b := range bands {
		angles := traj.Angles(b)
		pts := make(plotter.XYs, len(angles))
		for t, a := range angles {
			pts[t] = plotter.XY{X: float64(t) * traj.FrameTime, Y: a}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.Color = plotutil.Color(i)
		sc.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("band %d", b), sc)
	}

	if band >= 0 {
		amps := make(plotter.XYs, traj.Len())
		for t := range amps {
			amps[t] = plotter.XY{X: float64(t) * traj.FrameTime, Y: traj.Frames[t][band].Amplitude}
		}
		line, err := plotter.NewLine(amps)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(1)
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add("amplitude", line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Add(plotter.NewGrid())
	return p, nil
}

// WeightsPlot plots the blend weight of each transition frame.
func WeightsPlot(weights []float64, frameTime float64) (*plot.Plot, error) {
	if len(weights) == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = "Blend weight"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Weight"
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(weights))
	for i, w := range weights {
		pts[i] = plotter.XY{X: float64(i) * frameTime, Y: w}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	points.Color = plotutil.Color(0)
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// RootPathPlot draws the ground-plane (X, Z) path of the root joint, seen
// from above. The first and last frames are marked.
func RootPathPlot(seq motion.Sequence) (*plot.Plot, error) {
	if seq.Len() == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = "Root path"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Z"

	pts := make(plotter.XYs, seq.Len())
	for i, f := range seq.Frames {
		pts[i] = plotter.XY{X: f.Root.X, Y: f.Root.Z}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	p.Add(line)

	ends, err := plotter.NewScatter(plotter.XYs{pts[0], pts[len(pts)-1]})
	if err != nil {
		return nil, err
	}
	ends.Color = plotutil.Color(1)
	ends.Radius = vg.Points(3)
	p.Add(ends, plotter.NewGrid())
	p.Legend.Add("root", line)
	p.Legend.Add("endpoints", ends)
	return p, nil
}

// Write renders p to w in the given format ("png", "svg", "pdf", ...).
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save renders p to path, choosing the format from its extension.
func Save(p *plot.Plot, path string) error {
	if strings.TrimPrefix(filepath.Ext(path), ".") == "" {
		return fmt.Errorf("report: %s has no file extension", path)
	}
	return p.Save(Width, Height, path)
}
