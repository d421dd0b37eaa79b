package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

func humanoid() *skeleton.Skeleton {
	return skeleton.MustNew([]skeleton.Joint{
		{Name: "Hips", Parent: -1},
		{Name: "Spine", Parent: 0, Offset: r3.Vec{Y: 10}},
		{Name: "Neck", Parent: 1, Offset: r3.Vec{Y: 15}},
		{Name: "Head", Parent: 2, Offset: r3.Vec{Y: 5}, EndSite: &r3.Vec{Y: 8}},
		{Name: "LeftArm", Parent: 2, Offset: r3.Vec{X: 6}},
		{Name: "LeftHand", Parent: 4, Offset: r3.Vec{X: 12}},
		{Name: "LeftUpLeg", Parent: 0, Offset: r3.Vec{X: 4, Y: -2}},
		{Name: "LeftFoot", Parent: 6, Offset: r3.Vec{Y: -18}},
	})
}

func vecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestTPoseReproducesRestPositions(t *testing.T) {
	skel := humanoid()
	pose, err := SolveFrame(skel, motion.RestFrame(skel.NumJoints()))
	require.NoError(t, err)

	rest := skel.RestPositions()
	for j := range rest {
		vecNear(t, rest[j], pose.Positions[j])
	}
	require.NotNil(t, pose.EndSites[3])
	vecNear(t, r3.Vec{Y: 38}, *pose.EndSites[3])
	assert.Nil(t, pose.EndSites[0])
}

func TestRootTranslationAndYaw(t *testing.T) {
	skel := humanoid()
	f := motion.RestFrame(skel.NumJoints())
	f.Root = r3.Vec{X: 1, Y: 2, Z: 3}
	f.Rotations[0] = rotation.FromYaw(math.Pi / 2)

	pose, err := SolveFrame(skel, f)
	require.NoError(t, err)

	vecNear(t, f.Root, pose.Positions[0])
	// +X rotated 90° about +Y points to -Z.
	vecNear(t, r3.Vec{X: 1, Y: 2 + 25, Z: 3 - 6}, pose.Positions[4])
}

func TestCompositionOrder(t *testing.T) {
	skel := humanoid()
	f := motion.RestFrame(skel.NumJoints())
	// Bend the neck forward 90° about X: the arm chain swings with it.
	f.Rotations[2] = rotation.FromAxisAngle(r3.Vec{X: math.Pi / 2})
	f.Rotations[4] = rotation.FromAxisAngle(r3.Vec{Y: math.Pi / 2})

	pose, err := SolveFrame(skel, f)
	require.NoError(t, err)

	neck := pose.Positions[2]
	vecNear(t, r3.Vec{Y: 25}, neck)
	// Head offset (0,5,0) rotated 90° about X becomes (0,0,5).
	vecNear(t, r3.Vec{Y: 25, Z: 5}, pose.Positions[3])
	// Arm offset is along X, unchanged by the neck's X rotation.
	vecNear(t, r3.Vec{X: 6, Y: 25}, pose.Positions[4])
	// Hand offset rotated by neck∘arm: Rx(90)·Ry(90)·(12,0,0).
	want := rotation.Rotate(quat.Mul(f.Rotations[2], f.Rotations[4]), r3.Vec{X: 12})
	vecNear(t, r3.Add(pose.Positions[4], want), pose.Positions[5])
}

func TestSolveRejectsJointMismatch(t *testing.T) {
	skel := humanoid()
	_, err := Solve(skel, make([]quat.Number, 3), r3.Vec{})
	assert.ErrorIs(t, err, skeleton.ErrIncompatible)

	_, err = SolveSequence(skel, []motion.Frame{motion.RestFrame(8), motion.RestFrame(2)})
	assert.ErrorIs(t, err, skeleton.ErrIncompatible)
}

func TestPositions(t *testing.T) {
	skel := humanoid()
	frames := []motion.Frame{motion.RestFrame(8), motion.RestFrame(8)}
	frames[1].Root.Z = 4

	pos, err := Positions(skel, frames)
	require.NoError(t, err)
	require.Len(t, pos, 2)
	vecNear(t, r3.Vec{Y: 10, Z: 4}, pos[1][1])
}
