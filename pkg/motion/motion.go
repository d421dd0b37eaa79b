// Package motion holds the per-frame pose data that flows between pipeline
// stages: frames of root translation plus per-joint local rotations, fixed
// length windows, named clips and generated sequences.
package motion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// DefaultFrameTime is 30 frames per second.
const DefaultFrameTime = 1.0 / 30

// Frame is one pose: root translation and a local rotation per joint.
// Rotations[0] is the root's rotation.
type Frame struct {
	Root      r3.Vec
	Rotations []quat.Number
}

// RestFrame returns a frame at the origin with every rotation set to identity.
func RestFrame(numJoints int) Frame {
	f := Frame{Rotations: make([]quat.Number, numJoints)}
	for i := range f.Rotations {
		f.Rotations[i] = rotation.Identity()
	}
	return f
}

// NumJoints returns the number of joint rotations in the frame.
func (f Frame) NumJoints() int {
	return len(f.Rotations)
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	return Frame{Root: f.Root, Rotations: append([]quat.Number(nil), f.Rotations...)}
}

// IsFinite reports whether every value in the frame is finite.
func (f Frame) IsFinite() bool {
	for _, v := range [3]float64{f.Root.X, f.Root.Y, f.Root.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, q := range f.Rotations {
		if !rotation.IsFinite(q) {
			return false
		}
	}
	return true
}

// Heading returns the yaw of the root rotation.
func (f Frame) Heading() float64 {
	if len(f.Rotations) == 0 {
		return 0
	}
	return rotation.Heading(f.Rotations[0])
}

// Window is an ordered run of frames sampled at a fixed frame time.
type Window struct {
	Frames    []Frame
	FrameTime float64
}

// Sequence is a run of generated frames.
type Sequence = Window

// Len returns the number of frames.
func (w Window) Len() int {
	return len(w.Frames)
}

// Duration returns the time span covered by the window in seconds.
func (w Window) Duration() float64 {
	return float64(len(w.Frames)) * w.FrameTime
}

// Clone returns a deep copy of the window.
func (w Window) Clone() Window {
	out := Window{Frames: make([]Frame, len(w.Frames)), FrameTime: w.FrameTime}
	for i, f := range w.Frames {
		out.Frames[i] = f.Clone()
	}
	return out
}

// Slice returns frames [start, start+n) as a new window sharing no storage
// with w.
func (w Window) Slice(start, n int) (Window, error) {
	if start < 0 || n < 0 || start+n > len(w.Frames) {
		return Window{}, fmt.Errorf("%w: slice [%d:%d] of %d frames", ErrMalformed, start, start+n, len(w.Frames))
	}
	out := Window{Frames: make([]Frame, n), FrameTime: w.FrameTime}
	for i := 0; i < n; i++ {
		out.Frames[i] = w.Frames[start+i].Clone()
	}
	return out, nil
}

// First returns the first n frames. Fewer than n frames is a LengthError.
func (w Window) First(n int) (Window, error) {
	if len(w.Frames) < n {
		return Window{}, &LengthError{Want: n, Got: len(w.Frames)}
	}
	return w.Slice(0, n)
}

// Last returns the last n frames. Fewer than n frames is a LengthError.
func (w Window) Last(n int) (Window, error) {
	if len(w.Frames) < n {
		return Window{}, &LengthError{Want: n, Got: len(w.Frames)}
	}
	return w.Slice(len(w.Frames)-n, n)
}

// Validate checks the window against a skeleton. A positive length requires
// exactly that many frames; zero accepts any non-empty window.
func (w Window) Validate(skel *skeleton.Skeleton, length int) error {
	switch {
	case length > 0 && len(w.Frames) != length:
		return &LengthError{Want: length, Got: len(w.Frames)}
	case len(w.Frames) == 0:
		return &LengthError{Want: 1, Got: 0}
	}
	if !(w.FrameTime > 0) || math.IsInf(w.FrameTime, 0) {
		return fmt.Errorf("%w: frame time %v", ErrMalformed, w.FrameTime)
	}
	for i, f := range w.Frames {
		if err := skel.CheckJointCount(fmt.Sprintf("frame %d", i), f.NumJoints()); err != nil {
			return err
		}
		if !f.IsFinite() {
			return fmt.Errorf("%w: frame %d", ErrNonFinite, i)
		}
	}
	return nil
}

// Clip is a named motion of arbitrary length.
type Clip struct {
	Name        string
	Category    string
	Description string
	Window
}

// Duration returns the length of the clip in seconds.
func (c *Clip) Duration() float64 {
	return c.Window.Duration()
}
