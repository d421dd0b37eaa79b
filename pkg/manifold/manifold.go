// Package manifold implements the variational style encoder and the matched
// decoder. Both are conditioned on phase through feature-wise affine
// modulation so the latent code carries content and style but not timing.
package manifold

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/nn"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// NoiseMode selects how Sample draws the reparameterization noise.
type NoiseMode int

const (
	// NoiseZero decodes the mean deterministically.
	NoiseZero NoiseMode = iota
	// NoiseSampled draws noise from a standard normal.
	NoiseSampled
)

// String implements fmt.Stringer.
func (m NoiseMode) String() string {
	if m == NoiseSampled {
		return "sampled"
	}
	return "zero"
}

// Distribution is a diagonal Gaussian over latent codes.
type Distribution struct {
	Mean   []float64 `json:"mean"`
	LogVar []float64 `json:"logvar"`
}

// Sample returns mean + exp(0.5·logvar)⊙noise. Noise is zero for NoiseZero
// and drawn from src for NoiseSampled. logvar is clamped to ±maxLogVar.
func Sample(d Distribution, mode NoiseMode, src rand.Source, maxLogVar float64) []float64 {
	if mode != NoiseSampled {
		return append([]float64(nil), d.Mean...)
	}
	return Reparameterize(d, Noise(len(d.Mean), src), maxLogVar)
}

// Noise draws n standard normal values from src.
func Noise(n int, src rand.Source) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// Reparameterize returns mean + exp(0.5·logvar)⊙eps with logvar clamped to
// ±maxLogVar.
func Reparameterize(d Distribution, eps []float64, maxLogVar float64) []float64 {
	z := append([]float64(nil), d.Mean...)
	for i := range z {
		lv := math.Max(-maxLogVar, math.Min(maxLogVar, d.LogVar[i]))
		z[i] += math.Exp(0.5*lv) * eps[i]
	}
	return z
}

// Lerp interpolates two distributions component-wise.
func Lerp(a, b Distribution, w float64) Distribution {
	return Distribution{Mean: lerpVec(a.Mean, b.Mean, w), LogVar: lerpVec(a.LogVar, b.LogVar, w)}
}

func lerpVec(a, b []float64, w float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + w*(b[i]-a[i])
	}
	return out
}

// Encoder maps a window and its phase trajectory to a latent distribution.
type Encoder struct {
	cfg  Config
	skel *skeleton.Skeleton

	in     *nn.Linear
	film   *nn.FiLM
	fwd    *nn.RNN
	bwd    *nn.RNN
	mean   *nn.Linear
	logvar *nn.Linear
}

// NewEncoder allocates an encoder with zeroed parameters.
func NewEncoder(skel *skeleton.Skeleton, cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := cfg.Hidden
	return &Encoder{
		cfg:    cfg,
		skel:   skel,
		in:     nn.NewLinear(FeatureSize(skel.NumJoints()), h),
		film:   nn.NewFiLM(3*cfg.Bands, h),
		fwd:    nn.NewRNN(h, h),
		bwd:    nn.NewRNN(h, h),
		mean:   nn.NewLinear(2*h, cfg.Latent),
		logvar: nn.NewLinear(2*h, cfg.Latent),
	}, nil
}

// Register adds the encoder's tensors to p.
func (e *Encoder) Register(p *nn.Params) {
	e.in.Register(p, "manifold.enc.in")
	e.film.Register(p, "manifold.enc.film")
	e.fwd.Register(p, "manifold.enc.fwd")
	e.bwd.Register(p, "manifold.enc.bwd")
	e.mean.Register(p, "manifold.enc.mean")
	e.logvar.Register(p, "manifold.enc.logvar")
}

// Encode returns the latent distribution of w. traj must have one entry per
// frame of w; reference is the pose deltas are measured against.
func (e *Encoder) Encode(w motion.Window, traj phase.Trajectory, reference motion.Frame) (Distribution, error) {
	if err := w.Validate(e.skel, 0); err != nil {
		return Distribution{}, err
	}
	if err := e.skel.CheckJointCount("reference pose", reference.NumJoints()); err != nil {
		return Distribution{}, err
	}
	if traj.Len() != w.Len() || traj.Bands() != e.cfg.Bands {
		return Distribution{}, fmt.Errorf("%w: %d frames with %d phase entries of %d bands, need %d bands",
			ErrShape, w.Len(), traj.Len(), traj.Bands(), e.cfg.Bands)
	}

	seq := make([][]float64, w.Len())
	for t, cur := range w.Frames {
		prev := cur
		if t > 0 {
			prev = w.Frames[t-1]
		}
		h := nn.ELU(e.in.Forward(PoseFeatures(prev, cur, reference)))
		seq[t] = e.film.Apply(h, phase.Condition(traj.Frames[t]))
	}

	fwd := e.fwd.Forward(seq, false)
	bwd := e.bwd.Forward(seq, true)
	pooled := append(append([]float64(nil), fwd[len(fwd)-1]...), bwd[0]...)

	d := Distribution{Mean: e.mean.Forward(pooled), LogVar: e.logvar.Forward(pooled)}
	if !nn.AllFinite(d.Mean) || !nn.AllFinite(d.LogVar) {
		return Distribution{}, &DecodeError{Reason: "encoder produced a non-finite latent"}
	}
	return d, nil
}

// Decoder maps a latent code and a phase to a frame relative to a reference.
type Decoder struct {
	cfg  Config
	skel *skeleton.Skeleton

	in     *nn.Linear
	film1  *nn.FiLM
	hidden *nn.Linear
	film2  *nn.FiLM
	out    *nn.Linear
}

// NewDecoder allocates a decoder with zeroed parameters.
func NewDecoder(skel *skeleton.Skeleton, cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := cfg.Hidden
	return &Decoder{
		cfg:    cfg,
		skel:   skel,
		in:     nn.NewLinear(cfg.Latent, h),
		film1:  nn.NewFiLM(3*cfg.Bands, h),
		hidden: nn.NewLinear(h, h),
		film2:  nn.NewFiLM(3*cfg.Bands, h),
		out:    nn.NewLinear(h, FeatureSize(skel.NumJoints())),
	}, nil
}

// OutputPrefix names the decoder's output layer tensors. A freshly
// initialized model zeroes it so decoding starts at the reference pose.
const OutputPrefix = "manifold.dec.out"

// Register adds the decoder's tensors to p.
func (d *Decoder) Register(p *nn.Params) {
	d.in.Register(p, "manifold.dec.in")
	d.film1.Register(p, "manifold.dec.film1")
	d.hidden.Register(p, "manifold.dec.hidden")
	d.film2.Register(p, "manifold.dec.film2")
	d.out.Register(p, OutputPrefix)
}

// Decode returns the frame encoded by z at the given phase. Non-finite or
// mis-shaped inputs and non-finite outputs fail with a DecodeError.
func (d *Decoder) Decode(z []float64, coords []phase.Coordinate) (Output, error) {
	if len(z) != d.cfg.Latent {
		return Output{}, &DecodeError{Reason: fmt.Sprintf("latent has %d values, need %d", len(z), d.cfg.Latent)}
	}
	if len(coords) != d.cfg.Bands {
		return Output{}, &DecodeError{Reason: fmt.Sprintf("phase has %d bands, need %d", len(coords), d.cfg.Bands)}
	}
	if !nn.AllFinite(z) {
		return Output{}, &DecodeError{Reason: "non-finite latent"}
	}
	for b, c := range coords {
		if !c.IsFinite() {
			return Output{}, &DecodeError{Reason: fmt.Sprintf("non-finite phase in band %d", b)}
		}
	}

	cond := phase.Condition(coords)
	h := d.film1.Apply(nn.ELU(d.in.Forward(z)), cond)
	h = d.film2.Apply(nn.ELU(d.hidden.Forward(h)), cond)
	feat := d.out.Forward(h)
	if !nn.AllFinite(feat) {
		return Output{}, &DecodeError{Reason: "non-finite output"}
	}
	return OutputFromFeatures(feat, d.skel.NumJoints()), nil
}
