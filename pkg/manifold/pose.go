package manifold

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// Output is one decoded frame, expressed relative to a reference pose.
type Output struct {
	// Deltas holds an axis-angle offset per joint. Deltas[0] applies to the
	// heading-free root rotation.
	Deltas []r3.Vec

	// RootDelta is the root displacement since the previous frame in that
	// frame's heading-local coordinates.
	RootDelta r3.Vec

	// YawDelta is the heading change since the previous frame in radians.
	YawDelta float64
}

// FeatureSize returns the per-frame feature width for numJoints joints.
func FeatureSize(numJoints int) int {
	return 3*numJoints + 4
}

// PoseFeatures describes cur relative to reference and to the previous frame.
// The layout is the same one the decoder emits, and OutputFromFeatures
// followed by Step reconstructs cur exactly.
func PoseFeatures(prev, cur, reference motion.Frame) []float64 {
	n := cur.NumJoints()
	out := make([]float64, 0, FeatureSize(n))

	root := rotation.Mul(rotation.Inverse(rotation.RemoveHeading(reference.Rotations[0])), rotation.RemoveHeading(cur.Rotations[0]))
	out = appendVec(out, rotation.ToAxisAngle(root))
	for j := 1; j < n; j++ {
		d := rotation.Mul(rotation.Inverse(reference.Rotations[j]), cur.Rotations[j])
		out = appendVec(out, rotation.ToAxisAngle(d))
	}

	h0 := prev.Heading()
	local := rotation.Rotate(rotation.FromYaw(-h0), r3.Sub(cur.Root, prev.Root))
	out = appendVec(out, local)
	out = append(out, rotation.AngleDiff(h0, cur.Heading()))
	return out
}

// OutputFromFeatures unpacks a feature vector laid out by PoseFeatures.
func OutputFromFeatures(feat []float64, numJoints int) Output {
	o := Output{Deltas: make([]r3.Vec, numJoints)}
	for j := 0; j < numJoints; j++ {
		o.Deltas[j] = r3.Vec{X: feat[3*j], Y: feat[3*j+1], Z: feat[3*j+2]}
	}
	base := 3 * numJoints
	o.RootDelta = r3.Vec{X: feat[base], Y: feat[base+1], Z: feat[base+2]}
	o.YawDelta = feat[base+3]
	return o
}

// Features packs the output into the PoseFeatures layout.
func (o Output) Features() []float64 {
	out := make([]float64, 0, FeatureSize(len(o.Deltas)))
	for _, d := range o.Deltas {
		out = appendVec(out, d)
	}
	out = appendVec(out, o.RootDelta)
	return append(out, o.YawDelta)
}

// Apply adds the deltas to the reference pose: reference ∘ exp(delta). The
// returned root rotation (index 0) carries no heading.
func (o Output) Apply(reference motion.Frame) []quat.Number {
	out := make([]quat.Number, len(o.Deltas))
	for j, d := range o.Deltas {
		ref := reference.Rotations[j]
		if j == 0 {
			ref = rotation.RemoveHeading(ref)
		}
		out[j] = rotation.Normalize(rotation.Mul(ref, rotation.FromAxisAngle(d)))
	}
	out[0] = rotation.RemoveHeading(out[0])
	return out
}

// Step advances prev by one decoded frame: the heading turns by YawDelta and
// the root moves by RootDelta expressed in prev's heading frame.
func (o Output) Step(prev, reference motion.Frame) motion.Frame {
	h0 := prev.Heading()
	h1 := h0 + o.YawDelta
	rots := o.Apply(reference)
	rots[0] = rotation.Normalize(rotation.Mul(rotation.FromYaw(h1), rots[0]))
	return motion.Frame{
		Root:      r3.Add(prev.Root, rotation.Rotate(rotation.FromYaw(h0), o.RootDelta)),
		Rotations: rots,
	}
}

func appendVec(dst []float64, v r3.Vec) []float64 {
	return append(dst, v.X, v.Y, v.Z)
}
