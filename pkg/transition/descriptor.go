package transition

import (
	"errors"

	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
)

// ErrInvalidDescriptor is returned for descriptors the sampler cannot run.
var ErrInvalidDescriptor = errors.New("transition: invalid descriptor")

// Endpoint is one side of a transition: the style code and phase encoded at
// the endpoint frame, and the frame itself.
type Endpoint struct {
	Latent manifold.Distribution
	Phase  []phase.Coordinate
	Frame  motion.Frame
}

// Descriptor describes one transition request. It lives for one Sample call.
type Descriptor struct {
	Source Endpoint
	Target Endpoint

	// Length is the number of generated frames. Lengths below 2 return the
	// source frame unchanged.
	Length int

	// PhaseSchedule trades a linear blend (0) for an eased one (1).
	PhaseSchedule float64

	// StyleOverride replaces the target's latent mean when set.
	StyleOverride []float64

	Noise manifold.NoiseMode
	Seed  uint64

	// FrameTime of the generated sequence; zero selects motion.DefaultFrameTime.
	FrameTime float64
}

// targetLatent returns the target distribution with any override applied.
func (d Descriptor) targetLatent() manifold.Distribution {
	t := d.Target.Latent
	if d.StyleOverride != nil {
		t = manifold.Distribution{Mean: append([]float64(nil), d.StyleOverride...), LogVar: t.LogVar}
	}
	return t
}

// TargetStyle returns the style code the transition is steered toward.
func (d Descriptor) TargetStyle() []float64 {
	return d.targetLatent().Mean
}
