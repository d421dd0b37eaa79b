// Package pipeline wires the stages together: motion windows are phase and
// style encoded, the transition sampler walks between the two endpoints, and
// the generated frames are solved and scored.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-motionblend/pkg/kinematics"
	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/model"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// Request asks for a transition from the end of Start to the beginning of
// Target.
type Request struct {
	Start  motion.Window
	Target motion.Window

	// StyleCode overrides the target's encoded latent mean when set.
	StyleCode []float64

	Length        int
	PhaseSchedule float64
	Noise         manifold.NoiseMode
	Seed          uint64
}

// Style is the encoded style of a window: its latent distribution and the
// phase of its frames.
type Style struct {
	Latent manifold.Distribution
	Phase  phase.Trajectory
}

// Response is a generated transition.
type Response struct {
	ID        string
	Sequence  motion.Sequence
	Positions [][]r3.Vec
	Metrics   transition.Metrics
	Result    *transition.Result
	Source    transition.Endpoint
	Target    transition.Endpoint
	Elapsed   time.Duration
}

// BatchResult pairs a batch entry with its outcome.
type BatchResult struct {
	Response *Response
	Err      error
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	maxLength int
	workers   int
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxLength bounds transition lengths.
func WithMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// WithBatchWorkers bounds how many batch requests run at once.
func WithBatchWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Pipeline runs requests against one shared model. It is safe for concurrent
// use; every request owns its buffers.
type Pipeline struct {
	model   *model.Model
	exec    model.Execution
	sampler *transition.Sampler
	workers int
	logger  *slog.Logger
}

// New returns a pipeline over m using exec for data-parallel work.
func New(m *model.Model, exec model.Execution, opts ...Option) *Pipeline {
	o := options{logger: slog.Default(), maxLength: transition.DefaultMaxLength, workers: 4}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		model:   m,
		exec:    exec,
		sampler: transition.NewSampler(m, exec, transition.WithMaxLength(o.maxLength), transition.WithLogger(o.logger)),
		workers: o.workers,
		logger:  o.logger.With("component", "pipeline.Pipeline"),
	}
}

// Model returns the shared model.
func (p *Pipeline) Model() *model.Model {
	return p.model
}

// EncodePhase returns the phase trajectory of a window of exactly
// Model().WindowLength() frames.
func (p *Pipeline) EncodePhase(ctx context.Context, w motion.Window) (phase.Trajectory, error) {
	if err := ctx.Err(); err != nil {
		return phase.Trajectory{}, err
	}
	return p.model.Phase().Encode(w)
}

// EncodeStyle returns the latent distribution and phase of a window of
// exactly Model().WindowLength() frames.
func (p *Pipeline) EncodeStyle(ctx context.Context, w motion.Window) (Style, error) {
	traj, err := p.EncodePhase(ctx, w)
	if err != nil {
		return Style{}, err
	}
	dist, err := p.model.Encoder().Encode(w, traj, p.model.Reference())
	if err != nil {
		return Style{}, err
	}
	return Style{Latent: dist, Phase: traj}, nil
}

// Endpoint encodes the window of clip anchored at one of its ends: the last
// window for AnchorEnd, the first for AnchorStart.
func (p *Pipeline) Endpoint(ctx context.Context, clip motion.Window, anchor phase.Anchor) (transition.Endpoint, error) {
	n := p.model.WindowLength()
	var (
		win motion.Window
		err error
		at  int
	)
	if anchor == phase.AnchorEnd {
		win, err = clip.Last(n)
		at = n - 1
	} else {
		win, err = clip.First(n)
	}
	if err != nil {
		var le *motion.LengthError
		if errors.As(err, &le) {
			return transition.Endpoint{}, &phase.EncodingError{Reason: le.Reason(), Err: err}
		}
		return transition.Endpoint{}, err
	}

	style, err := p.EncodeStyle(ctx, win)
	if err != nil {
		return transition.Endpoint{}, err
	}
	return transition.Endpoint{
		Latent: style.Latent,
		Phase:  style.Phase.At(at),
		Frame:  win.Frames[at].Clone(),
	}, nil
}

// Generate runs one transition request end to end.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Response, error) {
	began := time.Now()

	skel := p.model.Skeleton()
	if err := req.Start.Validate(skel, 0); err != nil {
		return nil, fmt.Errorf("start motion: %w", err)
	}
	if err := req.Target.Validate(skel, 0); err != nil {
		return nil, fmt.Errorf("target motion: %w", err)
	}

	var ends [2]transition.Endpoint
	clips := [2]motion.Window{req.Start, req.Target}
	anchors := [2]phase.Anchor{phase.AnchorEnd, phase.AnchorStart}
	err := p.exec.ForEach(ctx, 2, func(i int) error {
		ep, err := p.Endpoint(ctx, clips[i], anchors[i])
		if err != nil {
			return err
		}
		ends[i] = ep
		return nil
	})
	if err != nil {
		return nil, err
	}

	desc := transition.Descriptor{
		Source:        ends[0],
		Target:        ends[1],
		Length:        req.Length,
		PhaseSchedule: req.PhaseSchedule,
		StyleOverride: req.StyleCode,
		Noise:         req.Noise,
		Seed:          req.Seed,
		FrameTime:     req.Start.FrameTime,
	}
	res, err := p.sampler.Sample(ctx, desc)
	if err != nil {
		return nil, err
	}

	positions, err := kinematics.Positions(skel, res.Frames)
	if err != nil {
		return nil, err
	}
	metrics, err := transition.Evaluate(skel, res, desc.TargetStyle())
	if err != nil {
		return nil, err
	}

	resp := &Response{
		ID:        uuid.NewString(),
		Sequence:  res.Sequence(),
		Positions: positions,
		Metrics:   metrics,
		Result:    res,
		Source:    ends[0],
		Target:    ends[1],
		Elapsed:   time.Since(began),
	}
	p.logger.Info("transition generated",
		"id", resp.ID,
		"frames", res.Len(),
		"schedule", req.PhaseSchedule,
		"smoothness", metrics.Smoothness,
		"elapsed", resp.Elapsed,
	)
	return resp, nil
}

// GenerateBatch runs independent requests concurrently. Each entry gets its
// own result; one failure does not affect the others. ctx is checked before
// each request is submitted, never while one is running.
func (p *Pipeline) GenerateBatch(ctx context.Context, reqs []Request) []BatchResult {
	out := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range reqs {
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			resp, err := p.Generate(context.WithoutCancel(ctx), reqs[i])
			out[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
