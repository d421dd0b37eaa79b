package transition

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/model"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// DefaultMaxLength bounds the number of generated frames.
const DefaultMaxLength = 600

// Result holds the generated frames and the per-frame codes they came from.
type Result struct {
	Frames    []motion.Frame
	Latents   [][]float64
	Phases    [][]phase.Coordinate
	Weights   []float64
	Headings  []float64
	FrameTime float64
}

// Len returns the number of generated frames.
func (r *Result) Len() int {
	return len(r.Frames)
}

// Sequence returns the frames as a motion sequence.
func (r *Result) Sequence() motion.Sequence {
	return motion.Sequence{Frames: r.Frames, FrameTime: r.FrameTime}
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMaxLength sets the largest accepted transition length.
func WithMaxLength(n int) Option {
	return func(s *Sampler) {
		s.maxLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = l
	}
}

// Sampler produces transitions from a shared model. It holds no per-request
// state and is safe for concurrent use.
type Sampler struct {
	model     *model.Model
	exec      model.Execution
	maxLength int
	logger    *slog.Logger
}

// NewSampler returns a sampler decoding through exec.
func NewSampler(m *model.Model, exec model.Execution, opts ...Option) *Sampler {
	s := &Sampler{
		model:     m,
		exec:      exec,
		maxLength: DefaultMaxLength,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "transition.Sampler")
	return s
}

// Sample generates the transition described by d.
func (s *Sampler) Sample(ctx context.Context, d Descriptor) (*Result, error) {
	if err := s.validate(d); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ft := d.FrameTime
	if ft <= 0 {
		ft = motion.DefaultFrameTime
	}

	if d.Length < 2 {
		return &Result{
			Frames:    []motion.Frame{d.Source.Frame.Clone()},
			Latents:   [][]float64{append([]float64(nil), d.Source.Latent.Mean...)},
			Phases:    [][]phase.Coordinate{append([]phase.Coordinate(nil), d.Source.Phase...)},
			Weights:   []float64{0},
			Headings:  []float64{d.Source.Frame.Heading()},
			FrameTime: ft,
		}, nil
	}

	n := d.Length
	res := &Result{
		Frames:    make([]motion.Frame, n),
		Latents:   make([][]float64, n),
		Phases:    make([][]phase.Coordinate, n),
		Weights:   Weights(n, d.PhaseSchedule),
		FrameTime: ft,
	}

	maxLogVar := s.model.Config().Manifold.MaxLogVar
	target := d.targetLatent()
	var eps []float64
	if d.Noise == manifold.NoiseSampled {
		eps = manifold.Noise(len(target.Mean), rand.NewPCG(d.Seed, d.Seed^0xda3e39cb94b95bdb))
	}

	for i, w := range res.Weights {
		res.Phases[i] = phase.BlendAll(d.Source.Phase, d.Target.Phase, w)
		dist := manifold.Lerp(d.Source.Latent, target, w)
		if eps != nil {
			res.Latents[i] = manifold.Reparameterize(dist, eps, maxLogVar)
		} else {
			res.Latents[i] = dist.Mean
		}
	}

	outs := make([]manifold.Output, n)
	dec := s.model.Decoder()
	err := s.exec.ForEach(ctx, n, func(i int) error {
		out, err := dec.Decode(res.Latents[i], res.Phases[i])
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		outs[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.integrate(d, outs, res)

	s.logger.Debug("transition sampled",
		"length", n,
		"schedule", d.PhaseSchedule,
		"noise", d.Noise.String(),
		"backend", s.exec.Backend(),
	)
	return res, nil
}

// integrate turns the decoded per-frame deltas into world-space frames.
//
// Two root streams are integrated from the same deltas. The forward stream
// starts at the source root and heading. The target stream ends at the
// target root and heading; its displacements are the forward ones rotated by
// the heading difference between where the forward stream ends and the
// target heading. The streams are blended by the schedule weight, so frame 0
// sits on the source root and the last frame on the target root.
func (s *Sampler) integrate(d Descriptor, outs []manifold.Output, res *Result) {
	n := len(outs)
	ref := s.model.Reference()

	fwdRoot := make([]r3.Vec, n)
	fwdHead := make([]float64, n)
	steps := make([]r3.Vec, n)

	fwdRoot[0] = d.Source.Frame.Root
	fwdHead[0] = d.Source.Frame.Heading()
	for i := 1; i < n; i++ {
		steps[i] = rotation.Rotate(rotation.FromYaw(fwdHead[i-1]), outs[i].RootDelta)
		fwdRoot[i] = r3.Add(fwdRoot[i-1], steps[i])
		fwdHead[i] = fwdHead[i-1] + outs[i].YawDelta
	}

	dh := rotation.AngleDiff(fwdHead[n-1], d.Target.Frame.Heading())
	align := rotation.FromYaw(dh)

	bwdRoot := make([]r3.Vec, n)
	bwdRoot[n-1] = d.Target.Frame.Root
	for i := n - 1; i > 0; i-- {
		bwdRoot[i-1] = r3.Sub(bwdRoot[i], rotation.Rotate(align, steps[i]))
	}

	res.Headings = make([]float64, n)
	for i, out := range outs {
		w := res.Weights[i]
		h := rotation.WrapAngle(fwdHead[i] + w*dh)
		rots := out.Apply(ref)
		rots[0] = rotation.Normalize(rotation.Mul(rotation.FromYaw(h), rots[0]))

		res.Headings[i] = h
		res.Frames[i] = motion.Frame{
			Root:      r3.Add(r3.Scale(1-w, fwdRoot[i]), r3.Scale(w, bwdRoot[i])),
			Rotations: rots,
		}
	}
}

func (s *Sampler) validate(d Descriptor) error {
	skel := s.model.Skeleton()
	if err := skel.CheckJointCount("source frame", d.Source.Frame.NumJoints()); err != nil {
		return err
	}
	if err := skel.CheckJointCount("target frame", d.Target.Frame.NumJoints()); err != nil {
		return err
	}
	if !d.Source.Frame.IsFinite() || !d.Target.Frame.IsFinite() {
		return fmt.Errorf("%w: non-finite endpoint frame", ErrInvalidDescriptor)
	}
	if !ValidSchedule(d.PhaseSchedule) {
		return fmt.Errorf("%w: phase schedule %v outside [0, 1]", ErrInvalidDescriptor, d.PhaseSchedule)
	}
	if d.Length < 0 || d.Length > s.maxLength {
		return fmt.Errorf("%w: length %d outside [0, %d]", ErrInvalidDescriptor, d.Length, s.maxLength)
	}
	if d.Length < 2 {
		return nil
	}

	cfg := s.model.Config()
	latent, bands := cfg.Manifold.Latent, cfg.Phase.Bands
	for _, ep := range []struct {
		name string
		e    Endpoint
	}{{"source", d.Source}, {"target", d.Target}} {
		if len(ep.e.Latent.Mean) != latent || len(ep.e.Latent.LogVar) != latent {
			return fmt.Errorf("%w: %s latent has %d/%d values, need %d", ErrInvalidDescriptor, ep.name, len(ep.e.Latent.Mean), len(ep.e.Latent.LogVar), latent)
		}
		if len(ep.e.Phase) != bands {
			return fmt.Errorf("%w: %s phase has %d bands, need %d", ErrInvalidDescriptor, ep.name, len(ep.e.Phase), bands)
		}
	}
	if d.StyleOverride != nil && len(d.StyleOverride) != latent {
		return fmt.Errorf("%w: style override has %d values, need %d", ErrInvalidDescriptor, len(d.StyleOverride), latent)
	}
	return nil
}
