// Package phase encodes motion windows into per-band periodic phase
// coordinates and provides the circular arithmetic used to blend them.
package phase

import (
	"math"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// Coordinate is one band's phase at one frame. (Sx, Sy) lies on the unit
// circle; Frequency is in Hz and Amplitude is never negative.
type Coordinate struct {
	Sx        float64 `json:"sx"`
	Sy        float64 `json:"sy"`
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
}

// FromAngle builds a coordinate on the unit circle.
func FromAngle(angle, frequency, amplitude float64) Coordinate {
	s, c := math.Sincos(angle)
	return Coordinate{Sx: c, Sy: s, Frequency: frequency, Amplitude: math.Max(amplitude, 0)}
}

// Angle returns atan2(Sy, Sx) in (-π, π].
func (c Coordinate) Angle() float64 {
	return rotation.WrapAngle(math.Atan2(c.Sy, c.Sx))
}

// Magnitude returns the length of (Sx, Sy).
func (c Coordinate) Magnitude() float64 {
	return math.Hypot(c.Sx, c.Sy)
}

// IsFinite reports whether every field is finite.
func (c Coordinate) IsFinite() bool {
	for _, v := range [4]float64{c.Sx, c.Sy, c.Frequency, c.Amplitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Trajectory holds one coordinate per band for every frame of a window.
type Trajectory struct {
	Frames    [][]Coordinate `json:"frames"`
	FrameTime float64        `json:"frame_time"`
}

// Len returns the number of frames.
func (t Trajectory) Len() int {
	return len(t.Frames)
}

// Bands returns the number of bands, zero for an empty trajectory.
func (t Trajectory) Bands() int {
	if len(t.Frames) == 0 {
		return 0
	}
	return len(t.Frames[0])
}

// At returns a copy of frame i's coordinates.
func (t Trajectory) At(i int) []Coordinate {
	return append([]Coordinate(nil), t.Frames[i]...)
}

// Angles returns the phase angle of band b over time.
func (t Trajectory) Angles(b int) []float64 {
	out := make([]float64, len(t.Frames))
	for i, f := range t.Frames {
		out[i] = f[b].Angle()
	}
	return out
}

// Condition flattens coordinates into the conditioning vector consumed by the
// manifold networks: (Sx, Sy, Amplitude) per band.
func Condition(coords []Coordinate) []float64 {
	out := make([]float64, 0, 3*len(coords))
	for _, c := range coords {
		out = append(out, c.Sx, c.Sy, c.Amplitude)
	}
	return out
}

// Wrap maps an angle into (-π, π].
func Wrap(rad float64) float64 {
	return rotation.WrapAngle(rad)
}

// AngularDiff returns the signed shortest arc from one angle to another.
// Angles exactly π apart resolve to +π (toward increasing angle).
func AngularDiff(from, to float64) float64 {
	return rotation.AngleDiff(from, to)
}

// BlendAngle moves from a toward b along the shortest arc by weight w.
func BlendAngle(a, b, w float64) float64 {
	return rotation.LerpAngle(a, b, w)
}

// Blend interpolates two coordinates: the angle along the shortest arc,
// frequency and amplitude linearly. The result stays on the unit circle.
func Blend(c0, c1 Coordinate, w float64) Coordinate {
	return FromAngle(
		BlendAngle(c0.Angle(), c1.Angle(), w),
		c0.Frequency+w*(c1.Frequency-c0.Frequency),
		c0.Amplitude+w*(c1.Amplitude-c0.Amplitude),
	)
}

// BlendAll blends two equally sized band sets.
func BlendAll(c0, c1 []Coordinate, w float64) []Coordinate {
	out := make([]Coordinate, len(c0))
	for i := range c0 {
		out[i] = Blend(c0[i], c1[i], w)
	}
	return out
}
