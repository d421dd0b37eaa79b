package phase

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/kinematics"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// VelocityFeatures returns a T×3J matrix of per-joint velocities. Positions are
// taken relative to the root and rotated into the root's heading frame before
// differencing, so the features do not depend on where the character stands
// or faces. Frame 0 reuses the first forward difference.
func VelocityFeatures(w motion.Window, skel *skeleton.Skeleton) (*mat.Dense, error) {
	n := skel.NumJoints()
	local := make([][]r3.Vec, len(w.Frames))
	for i, f := range w.Frames {
		pose, err := kinematics.SolveFrame(skel, f)
		if err != nil {
			return nil, err
		}
		unyaw := rotation.FromYaw(-f.Heading())
		local[i] = make([]r3.Vec, n)
		for j, p := range pose.Positions {
			local[i][j] = rotation.Rotate(unyaw, r3.Sub(p, f.Root))
		}
	}

	out := mat.NewDense(len(w.Frames), 3*n, nil)
	if len(w.Frames) < 2 {
		return out, nil
	}
	inv := 1 / w.FrameTime
	for i := range w.Frames {
		a, b := i-1, i
		if i == 0 {
			a, b = 0, 1
		}
		for j := 0; j < n; j++ {
			v := r3.Scale(inv, r3.Sub(local[b][j], local[a][j]))
			out.Set(i, 3*j, v.X)
			out.Set(i, 3*j+1, v.Y)
			out.Set(i, 3*j+2, v.Z)
		}
	}
	return out, nil
}
