package rotation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalTolerance is how close |sin(middle angle)| may get to 1 before the
// decomposition treats the pose as gimbal locked.
const gimbalTolerance = 1e-9

// FromEuler builds a rotation from three angles in degrees applied in order.
func FromEuler(deg [3]float64, o Order) quat.Number {
	axes := o.axes()
	q := Identity()
	for i := 0; i < 3; i++ {
		q = Mul(q, axisRotation(axes[i], Radians(deg[i])))
	}
	return Normalize(q)
}

// ToEuler decomposes q into three angles in degrees for order o such that
// FromEuler(ToEuler(q, o), o) reproduces q. The middle angle lies in
// [-90, 90]; at gimbal lock the last angle is set to zero.
func ToEuler(q quat.Number, o Order) [3]float64 {
	a := o.axes()
	i, j, k := a[0], a[1], a[2]
	s := -1.0
	if o.cyclic() {
		s = 1
	}

	m := Matrix(q)
	sb := clamp(s*m[i][k], -1, 1)
	b := math.Asin(sb)

	var first, last float64
	if math.Abs(sb) < 1-gimbalTolerance {
		first = math.Atan2(-s*m[j][k], m[k][k])
		last = math.Atan2(-s*m[i][j], m[i][i])
	} else {
		first = math.Atan2(s*m[k][j], m[j][j])
		last = 0
	}
	return [3]float64{Degrees(first), Degrees(b), Degrees(last)}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// clamp restricts a value to a range.
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
