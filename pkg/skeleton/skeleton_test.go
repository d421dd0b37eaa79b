package skeleton

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

func chain() []Joint {
	return []Joint{
		{Name: "Hips", Parent: -1},
		{Name: "Spine", Parent: 0, Offset: r3.Vec{Y: 10}},
		{Name: "Head", Parent: 1, Offset: r3.Vec{Y: 20}, EndSite: &r3.Vec{Y: 5}},
		{Name: "LeftLeg", Parent: 0, Offset: r3.Vec{X: 8, Y: -2}, ChannelOrder: rotation.XYZ},
	}
}

func TestNew(t *testing.T) {
	s, err := New(chain())
	require.NoError(t, err)

	assert.Equal(t, 4, s.NumJoints())
	assert.Equal(t, 15, s.ChannelCount())
	assert.Equal(t, []int{1, 3}, s.Children(0))
	assert.Equal(t, 2, s.Depth(2))
	assert.True(t, s.IsLeaf(2))
	assert.Equal(t, rotation.DefaultOrder, s.Order(0))
	assert.Equal(t, rotation.XYZ, s.Order(3))

	idx, err := s.Index("Head")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = s.Index("Tail")
	assert.ErrorIs(t, err, ErrUnknownJoint)
}

func TestDFSOrder(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, MustNew(chain()).DFSOrder())

	s := MustNew([]Joint{
		{Name: "Root", Parent: -1},
		{Name: "A", Parent: 0},
		{Name: "B", Parent: 0},
		{Name: "AChild", Parent: 1},
		{Name: "BChild", Parent: 2},
	})
	assert.Equal(t, []int{0, 1, 3, 2, 4}, s.DFSOrder())
}

func TestRestPositions(t *testing.T) {
	s := MustNew(chain())
	rest := s.RestPositions()

	assert.Equal(t, r3.Vec{}, rest[0])
	assert.Equal(t, r3.Vec{Y: 10}, rest[1])
	assert.Equal(t, r3.Vec{Y: 30}, rest[2])
	assert.Equal(t, r3.Vec{X: 8, Y: -2}, rest[3])
}

func TestNewRejectsInvalidHierarchies(t *testing.T) {
	tests := []struct {
		name   string
		joints []Joint
	}{
		{"empty", nil},
		{"root not first", []Joint{{Name: "A", Parent: 0}}},
		{"second root", []Joint{{Name: "A", Parent: -1}, {Name: "B", Parent: -1}}},
		{"parent after child", []Joint{{Name: "A", Parent: -1}, {Name: "B", Parent: 2}, {Name: "C", Parent: 0}}},
		{"duplicate name", []Joint{{Name: "A", Parent: -1}, {Name: "A", Parent: 0}}},
		{"bad order", []Joint{{Name: "A", Parent: -1, ChannelOrder: "XXZ"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.joints)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestJointsAreCopies(t *testing.T) {
	s := MustNew(chain())
	joints := s.Joints()
	joints[2].EndSite.Y = 999
	joints[1].Offset.Y = 999

	assert.Equal(t, 5.0, s.Joint(2).EndSite.Y)
	assert.Equal(t, 10.0, s.Offset(1).Y)
}

func TestCompatible(t *testing.T) {
	a := MustNew(chain())
	b := MustNew(chain())
	assert.NoError(t, a.Compatible(b))

	short := MustNew(chain()[:3])
	err := a.Compatible(short)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatible))

	var ie *IncompatibleError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 4, ie.Want)
	assert.Equal(t, 3, ie.Got)

	rewired := chain()
	rewired[3].Parent = 1
	err = a.Compatible(MustNew(rewired))
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: test
joints:
  - name: Hips
    offset: [0, 0, 0]
    channel_order: zxy
  - name: Spine
    parent: Hips
    offset: [0, 10, 0]
  - name: Head
    parent: "1"
    offset: [0, 20, 0]
    end_site: [0, 5, 0]
`)
	s, err := Parse(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 3, s.NumJoints())
	assert.Equal(t, 1, s.Parent(2))
	require.NotNil(t, s.Joint(2).EndSite)
	assert.Equal(t, 5.0, s.Joint(2).EndSite.Y)
}

func TestLoadJSONRoundTrip(t *testing.T) {
	s := MustNew(chain())
	desc := Describe(s)

	dir := t.TempDir()
	path := filepath.Join(dir, "skeleton.json")
	data := mustJSON(t, desc)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, s.Compatible(loaded))
	assert.Equal(t, s.Names(), loaded.Names())
	assert.Equal(t, s.RestPositions(), loaded.RestPositions())
}

func TestParseUnknownParent(t *testing.T) {
	_, err := Parse([]byte(`{"joints":[{"name":"A"},{"name":"B","parent":"Nope"}]}`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalid)
}
