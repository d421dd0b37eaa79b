package phase

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/nn"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Anchor selects which end of a window EncodeAt aligns with the requested frame.
type Anchor int

const (
	// AnchorEnd encodes the window ending at the frame.
	AnchorEnd Anchor = iota
	// AnchorStart encodes the window starting at the frame.
	AnchorStart
)

// Encoder maps motion windows to phase trajectories. It is read-only after
// its parameters are loaded and may be shared between goroutines.
type Encoder struct {
	cfg  Config
	skel *skeleton.Skeleton

	extract *nn.Conv1D   // velocity features -> hidden
	curves  *nn.Conv1D   // hidden -> one latent curve per band
	heads   []*nn.Linear // per band: hidden + curve + slope -> (sx, sy)
	amps    []*nn.Linear // per band: pooled hidden + spectral amplitude + frequency -> amplitude
}

// NewEncoder allocates an encoder with zeroed parameters.
func NewEncoder(skel *skeleton.Skeleton, cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Encoder{
		cfg:     cfg,
		skel:    skel,
		extract: nn.NewConv1D(3*skel.NumJoints(), cfg.Hidden, cfg.Kernel),
		curves:  nn.NewConv1D(cfg.Hidden, cfg.Bands, cfg.Kernel),
		heads:   make([]*nn.Linear, cfg.Bands),
		amps:    make([]*nn.Linear, cfg.Bands),
	}
	for b := 0; b < cfg.Bands; b++ {
		e.heads[b] = nn.NewLinear(cfg.Hidden+2, 2)
		e.amps[b] = nn.NewLinear(cfg.Hidden+2, 1)
	}
	return e, nil
}

// Register adds the encoder's tensors to p.
func (e *Encoder) Register(p *nn.Params) {
	e.extract.Register(p, "phase.extract")
	e.curves.Register(p, "phase.curves")
	for b := range e.heads {
		e.heads[b].Register(p, fmt.Sprintf("phase.head%d", b))
		e.amps[b].Register(p, fmt.Sprintf("phase.amp%d", b))
	}
}

// Config returns the encoder configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// Encode returns the phase trajectory of a window of exactly
// Config().WindowLength frames. Shorter or longer windows are rejected.
func (e *Encoder) Encode(w motion.Window) (Trajectory, error) {
	if err := w.Validate(e.skel, e.cfg.WindowLength); err != nil {
		var le *motion.LengthError
		switch {
		case errors.Is(err, skeleton.ErrIncompatible):
			return Trajectory{}, err
		case errors.As(err, &le):
			return Trajectory{}, &EncodingError{Reason: le.Reason(), Err: err}
		default:
			return Trajectory{}, &EncodingError{Reason: "malformed window", Err: err}
		}
	}

	feats, err := VelocityFeatures(w, e.skel)
	if err != nil {
		return Trajectory{}, err
	}

	hidden := e.extract.Forward(feats)
	nn.ELUMatrix(hidden)
	curves := e.curves.Forward(hidden)

	t := e.cfg.WindowLength
	fft := fourier.NewFFT(t)
	pooled := columnMeans(hidden)

	bands := make([]spectral, e.cfg.Bands)
	amps := make([]float64, e.cfg.Bands)
	for b := range bands {
		bands[b] = analyze(fft, mat.Col(nil, b, curves), w.FrameTime)
		in := append(append([]float64(nil), pooled...), bands[b].amplitude, bands[b].frequency)
		amps[b] = nn.Softplus(e.amps[b].Forward(in)[0])
	}

	traj := Trajectory{Frames: make([][]Coordinate, t), FrameTime: w.FrameTime}
	for i := 0; i < t; i++ {
		row := hidden.RawRowView(i)
		coords := make([]Coordinate, e.cfg.Bands)
		for b := range coords {
			in := make([]float64, 0, len(row)+2)
			in = append(in, row...)
			in = append(in, curves.At(i, b), slope(curves, i, b))

			v := e.heads[b].Forward(in)
			angle := bands[b].angleAt(i)
			if mag := math.Hypot(v[0], v[1]); mag >= e.cfg.Epsilon {
				d := math.Max(mag, e.cfg.Epsilon)
				angle = math.Atan2(v[1]/d, v[0]/d)
			}
			coords[b] = FromAngle(angle, bands[b].frequency, amps[b])
			if !coords[b].IsFinite() {
				return Trajectory{}, &EncodingError{Reason: fmt.Sprintf("non-finite phase at frame %d band %d", i, b)}
			}
		}
		traj.Frames[i] = coords
	}
	return traj, nil
}

// EncodeAt encodes the window of a clip anchored at frame and returns that
// frame's coordinates along with the full trajectory.
func (e *Encoder) EncodeAt(clip motion.Window, frame int, anchor Anchor) ([]Coordinate, Trajectory, error) {
	n := e.cfg.WindowLength
	start, at := frame, 0
	if anchor == AnchorEnd {
		start, at = frame-n+1, n-1
	}
	if frame < 0 || frame >= clip.Len() || start < 0 || start+n > clip.Len() {
		return nil, Trajectory{}, &EncodingError{
			Reason: "insufficient data",
			Err:    fmt.Errorf("frame %d of %d has no full %d-frame window", frame, clip.Len(), n),
		}
	}

	win, err := clip.Slice(start, n)
	if err != nil {
		return nil, Trajectory{}, &EncodingError{Reason: "malformed window", Err: err}
	}
	traj, err := e.Encode(win)
	if err != nil {
		return nil, Trajectory{}, err
	}
	return traj.At(at), traj, nil
}

func columnMeans(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(r)
	}
	return out
}

// slope is the central difference of column b at row i, one-sided at the edges.
func slope(m *mat.Dense, i, b int) float64 {
	r, _ := m.Dims()
	lo, hi := i-1, i+1
	if lo < 0 {
		lo = 0
	}
	if hi >= r {
		hi = r - 1
	}
	if hi == lo {
		return 0
	}
	return (m.At(hi, b) - m.At(lo, b)) / float64(hi-lo)
}
