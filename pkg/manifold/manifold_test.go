package manifold

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/internal/fixture"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/nn"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

func gait() *motion.Clip {
	g := fixture.Walk(40)
	g.Heading = 0.7
	return g.Clip("walk")
}

func unitPhase(bands int, angle float64) []phase.Coordinate {
	out := make([]phase.Coordinate, bands)
	for i := range out {
		out[i] = phase.FromAngle(angle+float64(i), 1.5, 1)
	}
	return out
}

func trajectory(n, bands int) phase.Trajectory {
	tr := phase.Trajectory{FrameTime: motion.DefaultFrameTime}
	for i := 0; i < n; i++ {
		tr.Frames = append(tr.Frames, unitPhase(bands, 0.2*float64(i)))
	}
	return tr
}

func TestPoseFeaturesRoundTrip(t *testing.T) {
	clip := gait()
	reference := clip.Frames[0]

	for _, i := range []int{1, 10, 27} {
		prev, cur := clip.Frames[i-1], clip.Frames[i]
		feat := PoseFeatures(prev, cur, reference)
		require.Len(t, feat, FeatureSize(cur.NumJoints()))

		out := OutputFromFeatures(feat, cur.NumJoints())
		assert.Equal(t, feat, out.Features())

		got := out.Step(prev, reference)
		assert.InDelta(t, cur.Root.X, got.Root.X, 1e-9)
		assert.InDelta(t, cur.Root.Y, got.Root.Y, 1e-9)
		assert.InDelta(t, cur.Root.Z, got.Root.Z, 1e-9)
		for j := range cur.Rotations {
			assert.InDelta(t, 0, rotation.Angle(cur.Rotations[j], got.Rotations[j]), 1e-6, "frame %d joint %d", i, j)
		}
	}
}

func TestApplyZeroDeltasIsReference(t *testing.T) {
	reference := gait().Frames[5]
	out := Output{Deltas: make([]r3.Vec, reference.NumJoints())}

	rots := out.Apply(reference)
	assert.InDelta(t, 0, rotation.Heading(rots[0]), 1e-9)
	assert.InDelta(t, 0, rotation.Angle(rotation.RemoveHeading(reference.Rotations[0]), rots[0]), 1e-6)
	for j := 1; j < len(rots); j++ {
		assert.InDelta(t, 0, rotation.Angle(reference.Rotations[j], rots[j]), 1e-6)
	}
}

func newDecoder(t *testing.T, seed uint64) *Decoder {
	t.Helper()
	d, err := NewDecoder(fixture.Humanoid(), DefaultConfig())
	require.NoError(t, err)
	p := nn.NewParams()
	d.Register(p)
	p.Init(seed)
	return d
}

func TestDecode(t *testing.T) {
	d := newDecoder(t, 9)
	z := make([]float64, DefaultConfig().Latent)
	z[3] = 0.5

	out, err := d.Decode(z, unitPhase(4, 0.3))
	require.NoError(t, err)
	assert.Len(t, out.Deltas, fixture.Humanoid().NumJoints())

	again, err := d.Decode(z, unitPhase(4, 0.3))
	require.NoError(t, err)
	assert.Equal(t, out, again)

	shifted, err := d.Decode(z, unitPhase(4, 1.3))
	require.NoError(t, err)
	assert.NotEqual(t, out, shifted, "phase must condition the decoder")
}

func TestDecodeRejectsBadInput(t *testing.T) {
	d := newDecoder(t, 9)
	latent := DefaultConfig().Latent

	tests := []struct {
		name   string
		z      []float64
		coords []phase.Coordinate
	}{
		{"nan latent", append(make([]float64, latent-1), math.NaN()), unitPhase(4, 0)},
		{"inf latent", append(make([]float64, latent-1), math.Inf(-1)), unitPhase(4, 0)},
		{"short latent", make([]float64, latent-1), unitPhase(4, 0)},
		{"nan phase", make([]float64, latent), append(unitPhase(3, 0), phase.Coordinate{Sx: math.NaN()})},
		{"band count", make([]float64, latent), unitPhase(2, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.z, tt.coords)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}

	d.out.B.SetVec(0, math.Inf(1))
	_, err := d.Decode(make([]float64, latent), unitPhase(4, 0))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSample(t *testing.T) {
	dist := Distribution{Mean: []float64{1, 2, 3}, LogVar: []float64{0, -2, 50}}

	assert.Equal(t, dist.Mean, Sample(dist, NoiseZero, nil, 10))

	a := Sample(dist, NoiseSampled, rand.NewPCG(1, 2), 10)
	b := Sample(dist, NoiseSampled, rand.NewPCG(1, 2), 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, dist.Mean, a)
	assert.True(t, nn.AllFinite(a))
	assert.Equal(t, []float64{1, 2, 3}, dist.Mean, "sampling must not mutate the mean")
}

func TestEncode(t *testing.T) {
	skel := fixture.Humanoid()
	cfg := DefaultConfig()
	e, err := NewEncoder(skel, cfg)
	require.NoError(t, err)
	p := nn.NewParams()
	e.Register(p)
	p.Init(4)

	clip := gait()
	win, err := clip.First(31)
	require.NoError(t, err)

	dist, err := e.Encode(win, trajectory(31, cfg.Bands), clip.Frames[0])
	require.NoError(t, err)
	assert.Len(t, dist.Mean, cfg.Latent)
	assert.Len(t, dist.LogVar, cfg.Latent)

	again, err := e.Encode(win, trajectory(31, cfg.Bands), clip.Frames[0])
	require.NoError(t, err)
	assert.Equal(t, dist, again)

	_, err = e.Encode(win, trajectory(30, cfg.Bands), clip.Frames[0])
	assert.ErrorIs(t, err, ErrShape)

	e.mean.B.SetVec(0, math.NaN())
	_, err = e.Encode(win, trajectory(31, cfg.Bands), clip.Frames[0])
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrShape)
}
