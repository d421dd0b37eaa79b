// Package kinematics computes global joint poses from local rotations by
// walking the skeleton hierarchy in topological order.
package kinematics

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Pose is the world-space result for one frame.
type Pose struct {
	Positions []r3.Vec
	Rotations []quat.Number

	// EndSites holds the world position of each joint's end site, nil for
	// joints without one.
	EndSites []*r3.Vec
}

// Solve computes the global pose of one frame. The root's global rotation is
// local[0] (which already carries any heading correction) and its position is
// rootTranslation.
func Solve(skel *skeleton.Skeleton, local []quat.Number, rootTranslation r3.Vec) (Pose, error) {
	n := skel.NumJoints()
	if err := skel.CheckJointCount("local rotations", len(local)); err != nil {
		return Pose{}, err
	}

	p := Pose{
		Positions: make([]r3.Vec, n),
		Rotations: make([]quat.Number, n),
		EndSites:  make([]*r3.Vec, n),
	}

	for j := 0; j < n; j++ {
		parent := skel.Parent(j)
		if parent < 0 {
			p.Rotations[j] = rotation.Normalize(local[j])
			p.Positions[j] = rootTranslation
		} else {
			pr := p.Rotations[parent]
			p.Rotations[j] = rotation.Normalize(rotation.Mul(pr, local[j]))
			p.Positions[j] = r3.Add(p.Positions[parent], rotation.Rotate(pr, skel.Offset(j)))
		}

		if es := skel.Joint(j).EndSite; es != nil {
			pos := r3.Add(p.Positions[j], rotation.Rotate(p.Rotations[j], *es))
			p.EndSites[j] = &pos
		}
	}
	return p, nil
}

// SolveFrame solves a motion frame.
func SolveFrame(skel *skeleton.Skeleton, f motion.Frame) (Pose, error) {
	return Solve(skel, f.Rotations, f.Root)
}

// SolveSequence solves every frame in order.
func SolveSequence(skel *skeleton.Skeleton, frames []motion.Frame) ([]Pose, error) {
	out := make([]Pose, len(frames))
	for i, f := range frames {
		p, err := SolveFrame(skel, f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Positions returns only the joint positions of every frame.
func Positions(skel *skeleton.Skeleton, frames []motion.Frame) ([][]r3.Vec, error) {
	poses, err := SolveSequence(skel, frames)
	if err != nil {
		return nil, err
	}
	out := make([][]r3.Vec, len(poses))
	for i, p := range poses {
		out[i] = p.Positions
	}
	return out, nil
}
