// Package transition generates the frames that carry a character from the
// end of a source motion to the start of a target motion by walking through
// latent and phase space under a blend schedule.
package transition

import "math"

// State is the phase of a composed playback relative to a transition.
type State int

const (
	// SourceHold covers frames before the transition starts.
	SourceHold State = iota
	// Blending covers the generated frames.
	Blending
	// TargetHold covers frames after the transition ends.
	TargetHold
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case SourceHold:
		return "source_hold"
	case Blending:
		return "blending"
	case TargetHold:
		return "target_hold"
	default:
		return "unknown"
	}
}

// StateAt classifies a playback frame against a transition spanning
// [t0, t1]. Only Blending frames are produced by the sampler; holds are
// served from the caller's own source and target frames.
func StateAt(frame, t0, t1 int) State {
	switch {
	case frame < t0:
		return SourceHold
	case frame > t1:
		return TargetHold
	default:
		return Blending
	}
}

// Schedule maps normalized time u to a blend weight. strength 0 is linear,
// 1 is a full smoothstep; both u and the result are clamped to [0, 1] and
// the curve is monotonically non-decreasing for every valid strength.
func Schedule(u, strength float64) float64 {
	u = clamp01(u)
	s := clamp01(strength)
	smooth := u * u * (3 - 2*u)
	return clamp01((1-s)*u + s*smooth)
}

// ValidSchedule reports whether strength lies in [0, 1].
func ValidSchedule(strength float64) bool {
	return strength >= 0 && strength <= 1 && !math.IsNaN(strength)
}

// Weights returns the schedule weight of every frame of an n-frame
// transition, u = i/(n-1).
func Weights(n int, strength float64) []float64 {
	if n < 2 {
		return make([]float64, n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = Schedule(float64(i)/float64(n-1), strength)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
