package phase

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// spectral is the frequency-domain summary of one band curve.
type spectral struct {
	frequency float64 // power-weighted mean frequency in Hz
	amplitude float64
	offset    float64 // phase of the dominant bin at frame 0
	bin       int
	n         int
}

// angleAt returns the dominant component's phase angle at frame t.
func (s spectral) angleAt(t int) float64 {
	if s.bin == 0 {
		return 0
	}
	return Wrap(s.offset + 2*math.Pi*float64(s.bin)*float64(t)/float64(s.n))
}

// analyze computes the spectrum of curve sampled every frameTime seconds.
// fft must have length len(curve).
func analyze(fft *fourier.FFT, curve []float64, frameTime float64) spectral {
	n := len(curve)
	centered := make([]float64, n)
	copy(centered, curve)
	floats.AddConst(-stat.Mean(curve, nil), centered)

	coeffs := fft.Coefficients(nil, centered)
	s := spectral{n: n}

	var total, weighted, peak float64
	for k := 1; k < len(coeffs); k++ {
		p := real(coeffs[k])*real(coeffs[k]) + imag(coeffs[k])*imag(coeffs[k])
		total += p
		weighted += p * fft.Freq(k)
		if p > peak {
			peak, s.bin = p, k
		}
	}
	if total == 0 || math.IsNaN(total) {
		s.bin = 0
		return s
	}

	s.frequency = weighted / total / frameTime
	s.amplitude = 2 * math.Sqrt(total) / float64(n)
	s.offset = cmplx.Phase(coeffs[s.bin])
	return s
}
