package nn

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearForward(t *testing.T) {
	l := NewLinear(2, 3)
	l.W = mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	l.B = mat.NewVecDense(3, []float64{0, 0, 10})

	got := l.Forward([]float64{2, 3})
	if diff := cmp.Diff([]float64{2, 3, 15}, got); diff != "" {
		t.Fatalf("Forward mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, l.In())
	assert.Equal(t, 3, l.Out())
}

func TestConv1DReplicatesEdges(t *testing.T) {
	c := NewConv1D(1, 1, 3)
	for _, tap := range c.Taps {
		tap.Set(0, 0, 1)
	}

	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := c.Forward(x)

	// Edge frames see their own value repeated instead of zero.
	want := []float64{1 + 1 + 2, 1 + 2 + 3, 2 + 3 + 4, 3 + 4 + 4}
	got := mat.Col(nil, 0, y)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("conv mismatch (-want +got):\n%s", diff)
	}
}

func TestConv1DRoundsKernelUp(t *testing.T) {
	c := NewConv1D(2, 3, 4)
	assert.Len(t, c.Taps, 5)
	assert.Equal(t, 3, c.Out())
}

func TestRNNDirections(t *testing.T) {
	r := NewRNN(1, 1)
	r.Wx.Set(0, 0, 1)
	r.Wh.Set(0, 0, 1)

	seq := [][]float64{{0.5}, {0}, {0}}
	fwd := r.Forward(seq, false)
	bwd := r.Forward(seq, true)

	// Forward carries the first input through every step.
	assert.InDelta(t, math.Tanh(0.5), fwd[0][0], 1e-12)
	assert.Greater(t, fwd[2][0], 0.0)
	// Backward only reaches the first step at the end.
	assert.Equal(t, 0.0, bwd[2][0])
	assert.InDelta(t, math.Tanh(0.5), bwd[0][0], 1e-12)
}

func TestFiLMIdentityAtZero(t *testing.T) {
	f := NewFiLM(2, 3)
	h := []float64{1, -2, 3}
	assert.Equal(t, h, f.Apply(h, []float64{5, 7}))

	f.Beta.B.SetVec(1, 1)
	f.Gamma.B.SetVec(0, 1)
	assert.Equal(t, []float64{2, -1, 3}, f.Apply(h, []float64{5, 7}))
}

func TestActivations(t *testing.T) {
	x := ELU([]float64{-1, 0, 2})
	assert.InDelta(t, math.Exp(-1)-1, x[0], 1e-12)
	assert.Equal(t, 2.0, x[2])

	assert.InDelta(t, math.Log(2), Softplus(0), 1e-12)
	assert.Equal(t, 100.0, Softplus(100))
	assert.GreaterOrEqual(t, Softplus(-800), 0.0)

	assert.True(t, AllFinite([]float64{1, 2}))
	assert.False(t, AllFinite([]float64{1, math.Inf(1)}))
}

func network() (*Params, *Linear, *Conv1D, *RNN) {
	p := NewParams()
	l := NewLinear(4, 3)
	c := NewConv1D(3, 2, 3)
	r := NewRNN(2, 2)
	l.Register(p, "enc.in")
	c.Register(p, "enc.conv")
	r.Register(p, "enc.rnn")
	return p, l, c, r
}

func TestInitIsDeterministic(t *testing.T) {
	p1, l1, _, _ := network()
	p2, l2, _, _ := network()
	p1.Init(7)
	p2.Init(7)

	assert.True(t, mat.Equal(l1.W, l2.W))
	assert.NotZero(t, l1.W.At(0, 0))
	assert.Zero(t, l1.B.AtVec(0))

	p3, l3, _, _ := network()
	p3.Init(8)
	assert.False(t, mat.Equal(l1.W, l3.W))

	p4, _, c4, _ := network()
	p4.Init(7, "enc.conv")
	assert.Zero(t, mat.Sum(c4.Taps[1]))
}

func TestWeightsFileRoundTrip(t *testing.T) {
	p1, l1, c1, r1 := network()
	p1.Init(42)

	var buf bytes.Buffer
	require.NoError(t, WriteFile(&buf, map[string]int{"hidden": 2}, p1))

	f, err := ReadFile(&buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hidden":2}`, string(f.Config))

	p2, l2, c2, r2 := network()
	require.NoError(t, p2.Import(f.Tensors))

	assert.True(t, mat.Equal(l1.W, l2.W))
	assert.True(t, mat.Equal(c1.Taps[2], c2.Taps[2]))
	assert.True(t, mat.Equal(r1.Wh, r2.Wh))
	if diff := cmp.Diff(p1.Names(), p2.Names(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4*3+3+3*3*2+2+2*2+2*2+2, p1.Count())
}

func TestImportErrors(t *testing.T) {
	p, _, _, _ := network()
	p.Init(1)
	tensors := p.Export()

	bad := p.Export()
	bad["enc.in.w"] = Tensor{Shape: [2]int{4, 3}, Data: make([]float64, 12)}
	err := p.Import(bad)
	assert.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "enc.in.w")

	delete(tensors, "enc.rnn.b")
	assert.ErrorIs(t, p.Import(tensors), ErrMissingTensor)

	_, err = ReadFile(bytes.NewBufferString(`{"version":9,"tensors":{}}`))
	assert.ErrorIs(t, err, ErrVersion)
}
