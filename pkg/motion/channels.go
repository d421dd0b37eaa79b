package motion

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Channels flattens a frame into one motion line: root position followed by
// the Euler angles (degrees) of every joint in its declared channel order.
// Joints appear in the skeleton's depth-first order, not index order.
func Channels(skel *skeleton.Skeleton, f Frame) ([]float64, error) {
	if err := skel.CheckJointCount("frame", f.NumJoints()); err != nil {
		return nil, err
	}
	out := make([]float64, 0, skel.ChannelCount())
	out = append(out, f.Root.X, f.Root.Y, f.Root.Z)
	for _, j := range skel.DFSOrder() {
		e := rotation.ToEuler(f.Rotations[j], skel.Order(j))
		out = append(out, e[0], e[1], e[2])
	}
	return out, nil
}

// FromChannels is the inverse of Channels.
func FromChannels(skel *skeleton.Skeleton, values []float64) (Frame, error) {
	if len(values) != skel.ChannelCount() {
		return Frame{}, fmt.Errorf("%w: %d channel values, need %d", ErrMalformed, len(values), skel.ChannelCount())
	}
	f := Frame{Rotations: make([]quat.Number, skel.NumJoints())}
	f.Root.X, f.Root.Y, f.Root.Z = values[0], values[1], values[2]
	for k, j := range skel.DFSOrder() {
		o := 3 + 3*k
		f.Rotations[j] = rotation.FromEuler([3]float64{values[o], values[o+1], values[o+2]}, skel.Order(j))
	}
	if !f.IsFinite() {
		return Frame{}, ErrNonFinite
	}
	return f, nil
}
