package transition

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-motionblend/pkg/kinematics"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// outlierScale converts a median absolute deviation to a normal-equivalent
// standard deviation.
const outlierScale = 1.4826

// Metrics are post-hoc diagnostics of a generated transition, each in [0, 1]
// with 1 best.
type Metrics struct {
	Smoothness          float64 `json:"smoothness"`
	Naturalness         float64 `json:"naturalness"`
	StylePreservation   float64 `json:"style_preservation"`
	TemporalConsistency float64 `json:"temporal_consistency"`
}

// Evaluate scores a result against the style code it was steered toward.
//
//   - Smoothness: 1/(1+variance of per-joint acceleration magnitude).
//   - Naturalness: share of frames whose mean joint speed is not a
//     three-sigma outlier by median absolute deviation.
//   - StylePreservation: exp(-d/√D) for the schedule-weighted mean distance
//     d of the frame latents from the target code.
//   - TemporalConsistency: 1/(1+mean root-relative joint displacement).
func Evaluate(skel *skeleton.Skeleton, res *Result, target []float64) (Metrics, error) {
	positions, err := kinematics.Positions(skel, res.Frames)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Smoothness:          smoothness(positions),
		Naturalness:         naturalness(positions),
		StylePreservation:   stylePreservation(res, target),
		TemporalConsistency: temporalConsistency(positions),
	}, nil
}

func smoothness(pos [][]r3.Vec) float64 {
	if len(pos) < 3 {
		return 1
	}
	var acc []float64
	for t := 0; t+2 < len(pos); t++ {
		for j := range pos[t] {
			a := r3.Add(r3.Sub(pos[t+2][j], r3.Scale(2, pos[t+1][j])), pos[t][j])
			acc = append(acc, r3.Norm(a))
		}
	}
	return 1 / (1 + stat.Variance(acc, nil))
}

func naturalness(pos [][]r3.Vec) float64 {
	if len(pos) < 3 {
		return 1
	}
	speeds := make([]float64, len(pos)-1)
	for t := range speeds {
		var sum float64
		for j := range pos[t] {
			sum += r3.Norm(r3.Sub(pos[t+1][j], pos[t][j]))
		}
		speeds[t] = sum / float64(len(pos[t]))
	}

	med := median(speeds)
	dev := make([]float64, len(speeds))
	for i, s := range speeds {
		dev[i] = math.Abs(s - med)
	}
	limit := 3*outlierScale*median(dev) + 1e-9

	outliers := 0
	for _, d := range dev {
		if d > limit {
			outliers++
		}
	}
	return 1 - float64(outliers)/float64(len(speeds))
}

func stylePreservation(res *Result, target []float64) float64 {
	if len(target) == 0 || len(res.Latents) == 0 {
		return 1
	}
	var dist, weight float64
	for i, z := range res.Latents {
		if len(z) != len(target) {
			return 0
		}
		w := res.Weights[i]
		dist += w * floats.Distance(z, target, 2)
		weight += w
	}
	if weight == 0 {
		dist = floats.Distance(res.Latents[len(res.Latents)-1], target, 2)
	} else {
		dist /= weight
	}
	return math.Exp(-dist / math.Sqrt(float64(len(target))))
}

func temporalConsistency(pos [][]r3.Vec) float64 {
	if len(pos) < 2 {
		return 1
	}
	var sum float64
	var count int
	for t := 0; t+1 < len(pos); t++ {
		for j := range pos[t] {
			a := r3.Sub(pos[t][j], pos[t][0])
			b := r3.Sub(pos[t+1][j], pos[t+1][0])
			sum += r3.Norm(r3.Sub(b, a))
			count++
		}
	}
	return 1 / (1 + sum/float64(count))
}

func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}
