// Package nn provides the small set of inference-only layers the phase and
// manifold networks are built from. Every layer is a read-only value after
// construction and safe for concurrent Forward calls.
package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is y = W·x + b.
type Linear struct {
	W *mat.Dense
	B *mat.VecDense
}

// NewLinear allocates a zeroed in→out layer.
func NewLinear(in, out int) *Linear {
	return &Linear{W: mat.NewDense(out, in, nil), B: mat.NewVecDense(out, nil)}
}

// In returns the input width.
func (l *Linear) In() int {
	_, c := l.W.Dims()
	return c
}

// Out returns the output width.
func (l *Linear) Out() int {
	r, _ := l.W.Dims()
	return r
}

// Forward applies the layer to x. It panics if len(x) != In().
func (l *Linear) Forward(x []float64) []float64 {
	y := mat.NewVecDense(l.Out(), nil)
	y.MulVec(l.W, mat.NewVecDense(len(x), append([]float64(nil), x...)))
	y.AddVec(y, l.B)
	return y.RawVector().Data
}

// Register adds the layer's tensors to p under prefix.
func (l *Linear) Register(p *Params, prefix string) {
	p.Register(prefix+".w", l.W)
	p.RegisterVec(prefix+".b", l.B)
}

// Conv1D is a temporal convolution over a T×In sequence with an odd kernel.
// Edges are padded by repeating the first and last frame so that no
// artificial zero signal enters the sequence.
type Conv1D struct {
	Taps []*mat.Dense // kernel taps, each Out×In
	B    *mat.VecDense
}

// NewConv1D allocates a zeroed convolution. Even kernel sizes are rounded up.
func NewConv1D(in, out, kernel int) *Conv1D {
	if kernel%2 == 0 {
		kernel++
	}
	c := &Conv1D{Taps: make([]*mat.Dense, kernel), B: mat.NewVecDense(out, nil)}
	for i := range c.Taps {
		c.Taps[i] = mat.NewDense(out, in, nil)
	}
	return c
}

// Out returns the number of output channels.
func (c *Conv1D) Out() int {
	r, _ := c.Taps[0].Dims()
	return r
}

// Forward convolves x (T×In) and returns a T×Out matrix.
func (c *Conv1D) Forward(x *mat.Dense) *mat.Dense {
	t, _ := x.Dims()
	out := mat.NewDense(t, c.Out(), nil)
	half := len(c.Taps) / 2

	acc := mat.NewVecDense(c.Out(), nil)
	tmp := mat.NewVecDense(c.Out(), nil)
	for i := 0; i < t; i++ {
		acc.CopyVec(c.B)
		for k, tap := range c.Taps {
			src := i + k - half
			if src < 0 {
				src = 0
			} else if src >= t {
				src = t - 1
			}
			tmp.MulVec(tap, x.RowView(src))
			acc.AddVec(acc, tmp)
		}
		out.SetRow(i, acc.RawVector().Data)
	}
	return out
}

// Register adds the layer's tensors to p under prefix.
func (c *Conv1D) Register(p *Params, prefix string) {
	for k, tap := range c.Taps {
		p.Register(prefix+".tap"+itoa(k), tap)
	}
	p.RegisterVec(prefix+".b", c.B)
}

// RNN is an Elman recurrence h_t = tanh(Wx·x_t + Wh·h_{t-1} + b).
type RNN struct {
	Wx *mat.Dense
	Wh *mat.Dense
	B  *mat.VecDense
}

// NewRNN allocates a zeroed recurrence.
func NewRNN(in, hidden int) *RNN {
	return &RNN{
		Wx: mat.NewDense(hidden, in, nil),
		Wh: mat.NewDense(hidden, hidden, nil),
		B:  mat.NewVecDense(hidden, nil),
	}
}

// Hidden returns the state width.
func (r *RNN) Hidden() int {
	n, _ := r.Wh.Dims()
	return n
}

// Forward runs the recurrence over seq and returns every hidden state in
// sequence order. With reverse set the recurrence runs from the last step to
// the first.
func (r *RNN) Forward(seq [][]float64, reverse bool) [][]float64 {
	n := r.Hidden()
	states := make([][]float64, len(seq))
	h := mat.NewVecDense(n, nil)
	tmp := mat.NewVecDense(n, nil)

	for s := 0; s < len(seq); s++ {
		i := s
		if reverse {
			i = len(seq) - 1 - s
		}
		next := mat.NewVecDense(n, nil)
		next.MulVec(r.Wx, mat.NewVecDense(len(seq[i]), append([]float64(nil), seq[i]...)))
		tmp.MulVec(r.Wh, h)
		next.AddVec(next, tmp)
		next.AddVec(next, r.B)
		data := next.RawVector().Data
		Tanh(data)
		states[i] = data
		h = next
	}
	return states
}

// Register adds the recurrence's tensors to p under prefix.
func (r *RNN) Register(p *Params, prefix string) {
	p.Register(prefix+".wx", r.Wx)
	p.Register(prefix+".wh", r.Wh)
	p.RegisterVec(prefix+".b", r.B)
}

// FiLM modulates features with a conditioning vector: (1+γ(c))⊙h + β(c).
// With zero weights it is the identity.
type FiLM struct {
	Gamma *Linear
	Beta  *Linear
}

// NewFiLM allocates a zeroed modulation from cond to width features.
func NewFiLM(cond, width int) *FiLM {
	return &FiLM{Gamma: NewLinear(cond, width), Beta: NewLinear(cond, width)}
}

// Apply returns the modulated copy of h.
func (f *FiLM) Apply(h, cond []float64) []float64 {
	g := f.Gamma.Forward(cond)
	b := f.Beta.Forward(cond)
	out := make([]float64, len(h))
	for i := range h {
		out[i] = (1+g[i])*h[i] + b[i]
	}
	return out
}

// Register adds the modulation's tensors to p under prefix.
func (f *FiLM) Register(p *Params, prefix string) {
	f.Gamma.Register(p, prefix+".gamma")
	f.Beta.Register(p, prefix+".beta")
}

// ELU applies the exponential linear unit in place and returns x.
func ELU(x []float64) []float64 {
	for i, v := range x {
		if v < 0 {
			x[i] = math.Expm1(v)
		}
	}
	return x
}

// Tanh applies tanh in place and returns x.
func Tanh(x []float64) []float64 {
	for i, v := range x {
		x[i] = math.Tanh(v)
	}
	return x
}

// Softplus returns log(1+e^v), never negative.
func Softplus(v float64) float64 {
	if v > 30 {
		return v
	}
	return math.Log1p(math.Exp(v))
}

// ELUMatrix applies ELU to every element of m in place.
func ELUMatrix(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return math.Expm1(v)
		}
		return v
	}, m)
}

// AllFinite reports whether every value in x is finite.
func AllFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
