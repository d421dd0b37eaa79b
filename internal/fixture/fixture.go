// Package fixture builds a small reference humanoid and procedural gait
// clips. The CLI uses them for demo models and the package tests use them as
// known inputs.
package fixture

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Humanoid returns a 10-joint biped.
func Humanoid() *skeleton.Skeleton {
	return skeleton.MustNew([]skeleton.Joint{
		{Name: "Hips", Parent: -1},
		{Name: "Spine", Parent: 0, Offset: r3.Vec{Y: 10}},
		{Name: "Head", Parent: 1, Offset: r3.Vec{Y: 20}, EndSite: &r3.Vec{Y: 8}},
		{Name: "LeftArm", Parent: 1, Offset: r3.Vec{X: 8, Y: 18}},
		{Name: "LeftHand", Parent: 3, Offset: r3.Vec{Y: -22}, EndSite: &r3.Vec{Y: -6}},
		{Name: "RightArm", Parent: 1, Offset: r3.Vec{X: -8, Y: 18}},
		{Name: "RightHand", Parent: 5, Offset: r3.Vec{Y: -22}, EndSite: &r3.Vec{Y: -6}},
		{Name: "LeftLeg", Parent: 0, Offset: r3.Vec{X: 5, Y: -4}},
		{Name: "LeftFoot", Parent: 7, Offset: r3.Vec{Y: -40}, EndSite: &r3.Vec{Z: 6}},
		{Name: "RightLeg", Parent: 0, Offset: r3.Vec{X: -5, Y: -4}},
	})
}

// Gait describes a procedural cyclic walk.
type Gait struct {
	Frames    int
	FrameTime float64
	Frequency float64 // steps per second
	Swing     float64 // leg swing in radians
	Speed     float64 // forward units per second
	Heading   float64 // facing in radians
	Phase     float64 // phase offset in radians
	Start     r3.Vec
}

// Walk returns a gait with default parameters for n frames.
func Walk(n int) Gait {
	return Gait{
		Frames:    n,
		FrameTime: motion.DefaultFrameTime,
		Frequency: 1.5,
		Swing:     0.5,
		Speed:     40,
	}
}

// Clip renders the gait.
func (g Gait) Clip(name string) *motion.Clip {
	skel := Humanoid()
	c := &motion.Clip{Name: name, Category: "locomotion", Window: motion.Window{FrameTime: g.FrameTime}}
	yaw := rotation.FromYaw(g.Heading)
	forward := rotation.Rotate(yaw, r3.Vec{Z: 1})

	for i := 0; i < g.Frames; i++ {
		t := float64(i) * g.FrameTime
		a := 2*math.Pi*g.Frequency*t + g.Phase
		s := math.Sin(a)

		f := motion.RestFrame(skel.NumJoints())
		f.Root = r3.Add(g.Start, r3.Add(r3.Scale(g.Speed*t, forward), r3.Vec{Y: 2 * math.Abs(math.Cos(a))}))
		f.Rotations[0] = quat.Mul(yaw, rotation.FromAxisAngle(r3.Vec{Z: 0.05 * s}))
		f.Rotations[1] = rotation.FromAxisAngle(r3.Vec{Y: 0.1 * s})
		f.Rotations[3] = rotation.FromAxisAngle(r3.Vec{X: -0.6 * g.Swing * s})
		f.Rotations[5] = rotation.FromAxisAngle(r3.Vec{X: 0.6 * g.Swing * s})
		f.Rotations[7] = rotation.FromAxisAngle(r3.Vec{X: g.Swing * s})
		f.Rotations[8] = rotation.FromAxisAngle(r3.Vec{X: 0.3 * g.Swing * math.Max(0, -s)})
		f.Rotations[9] = rotation.FromAxisAngle(r3.Vec{X: -g.Swing * s})
		c.Frames = append(c.Frames, f)
	}
	return c
}
