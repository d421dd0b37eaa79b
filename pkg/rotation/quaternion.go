package rotation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// smallAngle is the threshold below which axis-angle conversions switch to
// their first-order expansions.
const smallAngle = 1e-12

// Identity returns the identity rotation.
func Identity() quat.Number {
	return quat.Number{Real: 1}
}

// Mul composes a then b (a ∘ b).
func Mul(a, b quat.Number) quat.Number {
	return quat.Mul(a, b)
}

// Inverse returns the inverse of a unit quaternion.
func Inverse(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// Normalize scales q to unit length. Zero or non-finite input yields identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	return quat.Scale(1/n, q)
}

// Canonical returns q or -q, whichever has a non-negative real part.
func Canonical(q quat.Number) quat.Number {
	if q.Real < 0 {
		return quat.Scale(-1, q)
	}
	return q
}

// IsFinite reports whether every component of q is finite.
func IsFinite(q quat.Number) bool {
	for _, v := range [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Dot returns the 4D dot product of a and b.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Angle returns the angle in radians of the rotation taking a to b.
func Angle(a, b quat.Number) float64 {
	d := Mul(Inverse(Normalize(a)), Normalize(b))
	return 2 * math.Atan2(math.Sqrt(d.Imag*d.Imag+d.Jmag*d.Jmag+d.Kmag*d.Kmag), math.Abs(d.Real))
}

// Rotate applies q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// FromAxisAngle converts an axis-angle vector (direction = axis,
// length = angle in radians) to a unit quaternion.
func FromAxisAngle(v r3.Vec) quat.Number {
	theta := r3.Norm(v)
	if theta < smallAngle {
		return Normalize(quat.Number{Real: 1, Imag: v.X / 2, Jmag: v.Y / 2, Kmag: v.Z / 2})
	}
	s, c := math.Sincos(theta / 2)
	k := s / theta
	return quat.Number{Real: c, Imag: v.X * k, Jmag: v.Y * k, Kmag: v.Z * k}
}

// ToAxisAngle converts a rotation to its axis-angle vector with angle in [0, π].
func ToAxisAngle(q quat.Number) r3.Vec {
	q = Canonical(Normalize(q))
	im := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	n := r3.Norm(im)
	if n < smallAngle {
		return r3.Scale(2, im)
	}
	theta := 2 * math.Atan2(n, q.Real)
	return r3.Scale(theta/n, im)
}

// Slerp interpolates between a and b along the shorter great arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	a, b = Normalize(a), Normalize(b)
	d := Dot(a, b)
	if d < 0 {
		b = quat.Scale(-1, b)
		d = -d
	}
	if d > 0.9995 {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	theta := math.Acos(d)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// FromYaw returns a rotation of rad radians about +Y.
func FromYaw(rad float64) quat.Number {
	return axisRotation(1, rad)
}

// Heading returns the yaw in radians of q: the angle about +Y of the rotated
// forward axis (+Z) projected onto the ground plane. When the forward axis is
// vertical the rotated X axis is used instead.
func Heading(q quat.Number) float64 {
	f := Rotate(q, r3.Vec{Z: 1})
	if f.X*f.X+f.Z*f.Z > 1e-12 {
		return math.Atan2(f.X, f.Z)
	}
	x := Rotate(q, r3.Vec{X: 1})
	return math.Atan2(-x.Z, x.X)
}

// RemoveHeading strips the yaw component of q, returning FromYaw(-h) ∘ q.
func RemoveHeading(q quat.Number) quat.Number {
	return Mul(FromYaw(-Heading(q)), q)
}

// Matrix returns the 3x3 rotation matrix of q, row-major.
func Matrix(q quat.Number) [3][3]float64 {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

func axisRotation(axis int, rad float64) quat.Number {
	s, c := math.Sincos(rad / 2)
	switch axis {
	case 0:
		return quat.Number{Real: c, Imag: s}
	case 1:
		return quat.Number{Real: c, Jmag: s}
	default:
		return quat.Number{Real: c, Kmag: s}
	}
}
