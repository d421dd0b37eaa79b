package motion

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Record is the external JSON shape of a motion window.
type Record struct {
	Frames    []RecordFrame `json:"frames"`
	FrameTime float64       `json:"frame_time"`
}

// RecordFrame is one frame of a Record. Angles are degrees listed in the
// owning joint's channel order; Rotations covers the non-root joints.
type RecordFrame struct {
	RootPosition [3]float64   `json:"root_position"`
	RootRotation [3]float64   `json:"root_rotation"`
	Rotations    [][3]float64 `json:"rotations"`
}

// DecodeRecord reads a JSON record from r.
func DecodeRecord(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &rec, nil
}

// FromRecord converts a record into a window. A zero frame time selects
// DefaultFrameTime; frames with the wrong number of rotations fail with a
// skeleton.IncompatibleError.
func FromRecord(rec *Record, skel *skeleton.Skeleton) (Window, error) {
	if rec == nil || len(rec.Frames) == 0 {
		return Window{}, &LengthError{Want: 1, Got: 0}
	}

	ft := rec.FrameTime
	switch {
	case ft == 0:
		ft = DefaultFrameTime
	case ft < 0 || math.IsNaN(ft) || math.IsInf(ft, 0):
		return Window{}, fmt.Errorf("%w: frame time %v", ErrMalformed, rec.FrameTime)
	}

	w := Window{Frames: make([]Frame, len(rec.Frames)), FrameTime: ft}
	for i, rf := range rec.Frames {
		if err := skel.CheckJointCount(fmt.Sprintf("record frame %d", i), len(rf.Rotations)+1); err != nil {
			return Window{}, err
		}

		f := Frame{
			Root:      r3.Vec{X: rf.RootPosition[0], Y: rf.RootPosition[1], Z: rf.RootPosition[2]},
			Rotations: make([]quat.Number, skel.NumJoints()),
		}
		f.Rotations[0] = rotation.FromEuler(rf.RootRotation, skel.Order(0))
		for j, deg := range rf.Rotations {
			f.Rotations[j+1] = rotation.FromEuler(deg, skel.Order(j+1))
		}
		if !f.IsFinite() {
			return Window{}, fmt.Errorf("%w: record frame %d", ErrNonFinite, i)
		}
		w.Frames[i] = f
	}
	return w, nil
}

// ToRecord converts a window into its external record form.
func ToRecord(w Window, skel *skeleton.Skeleton) (*Record, error) {
	rec := &Record{Frames: make([]RecordFrame, len(w.Frames)), FrameTime: w.FrameTime}
	for i, f := range w.Frames {
		if err := skel.CheckJointCount(fmt.Sprintf("frame %d", i), f.NumJoints()); err != nil {
			return nil, err
		}
		rf := RecordFrame{
			RootPosition: [3]float64{f.Root.X, f.Root.Y, f.Root.Z},
			RootRotation: rotation.ToEuler(f.Rotations[0], skel.Order(0)),
			Rotations:    make([][3]float64, len(f.Rotations)-1),
		}
		for j := 1; j < len(f.Rotations); j++ {
			rf.Rotations[j-1] = rotation.ToEuler(f.Rotations[j], skel.Order(j))
		}
		rec.Frames[i] = rf
	}
	return rec, nil
}
