package model

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-motionblend/internal/fixture"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

func TestNewDecodesReferencePose(t *testing.T) {
	m, err := New(fixture.Humanoid(), DefaultConfig(), 1)
	require.NoError(t, err)
	assert.Greater(t, m.NumParams(), 0)

	z := make([]float64, m.Config().Manifold.Latent)
	coords := make([]phase.Coordinate, m.Config().Phase.Bands)
	for i := range coords {
		coords[i] = phase.FromAngle(0.4, 1, 1)
	}
	out, err := m.Decoder().Decode(z, coords)
	require.NoError(t, err)
	for _, d := range out.Deltas {
		assert.Zero(t, d)
	}
	assert.Zero(t, out.YawDelta)
}

func TestSaveReadRoundTrip(t *testing.T) {
	skel := fixture.Humanoid()
	m, err := New(skel, DefaultConfig(), 7)
	require.NoError(t, err)

	clip := fixture.Walk(40).Clip("walk")
	m, err = m.WithReference(clip.Frames[12])
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Read(&buf, skel)
	require.NoError(t, err)
	assert.Equal(t, m.Config(), loaded.Config())
	assert.Equal(t, m.NumParams(), loaded.NumParams())

	win, err := clip.First(m.WindowLength())
	require.NoError(t, err)
	a, err := m.Phase().Encode(win)
	require.NoError(t, err)
	b, err := loaded.Phase().Encode(win)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for j, q := range m.Reference().Rotations {
		assert.InDelta(t, 0, rotation.Angle(q, loaded.Reference().Rotations[j]), 1e-9)
	}
}

func TestReadRejectsOtherSkeleton(t *testing.T) {
	m, err := New(fixture.Humanoid(), DefaultConfig(), 7)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	small := skeleton.MustNew(fixture.Humanoid().Joints()[:4])
	_, err = Read(&buf, small)
	assert.ErrorIs(t, err, skeleton.ErrIncompatible)
}

func TestReferenceFromFrame(t *testing.T) {
	g := fixture.Walk(10)
	g.Heading = 1.2
	frame := g.Clip("w").Frames[3]

	ref := ReferenceFromFrame(frame)
	assert.Zero(t, ref.Root)
	assert.InDelta(t, 0, rotation.Heading(ref.Rotations[0]), 1e-9)
	assert.InDelta(t, 1.2, frame.Heading(), 1e-9, "input must not be modified")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Manifold.Bands = cfg.Phase.Bands + 1
	assert.Error(t, cfg.Validate())
}

func TestExecution(t *testing.T) {
	for _, backend := range []Backend{BackendCPU, BackendBatched} {
		t.Run(string(backend), func(t *testing.T) {
			exec, err := NewExecution(backend, 3)
			require.NoError(t, err)
			assert.Equal(t, backend, exec.Backend())

			seen := make([]int32, 50)
			err = exec.ForEach(context.Background(), len(seen), func(i int) error {
				atomic.AddInt32(&seen[i], 1)
				return nil
			})
			require.NoError(t, err)
			for i, n := range seen {
				assert.Equal(t, int32(1), n, "index %d", i)
			}

			boom := errors.New("boom")
			err = exec.ForEach(context.Background(), 10, func(i int) error {
				if i == 4 {
					return boom
				}
				return nil
			})
			assert.ErrorIs(t, err, boom)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			called := false
			err = exec.ForEach(ctx, 5, func(int) error {
				called = true
				return nil
			})
			assert.ErrorIs(t, err, context.Canceled)
			assert.False(t, called)
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" Batched ")
	require.NoError(t, err)
	assert.Equal(t, BackendBatched, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, b)

	_, err = ParseBackend("gpu")
	assert.Error(t, err)
}
