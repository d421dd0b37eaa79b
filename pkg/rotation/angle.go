package rotation

import "math"

// tieTolerance bounds how close to π an arc must be to count as a tie.
const tieTolerance = 1e-12

// WrapAngle maps rad into (-π, π].
func WrapAngle(rad float64) float64 {
	w := math.Mod(rad+math.Pi, 2*math.Pi)
	if w <= 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}

// AngleDiff returns the signed shortest arc from "from" to "to" in (-π, π].
// Two angles exactly opposite each other resolve to +π, i.e. the blend always
// travels toward increasing angle on a tie.
func AngleDiff(from, to float64) float64 {
	d := WrapAngle(to - from)
	if math.Abs(math.Abs(d)-math.Pi) <= tieTolerance {
		return math.Pi
	}
	return d
}

// LerpAngle moves from a toward b along the shortest arc by fraction t and
// wraps the result into (-π, π].
func LerpAngle(a, b, t float64) float64 {
	return WrapAngle(a + t*AngleDiff(a, b))
}
