// Package skeleton defines the static joint hierarchy shared read-only by every
// stage of the pipeline.
//
// Joints are stored in topological order: index 0 is the root and every
// joint's parent has a smaller index. A Skeleton is immutable once built.
package skeleton

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// Joint is one node of the hierarchy.
type Joint struct {
	// Name is unique within a skeleton.
	Name string

	// Parent is the index of the parent joint, -1 for the root.
	Parent int

	// Offset is the rest-pose translation from the parent joint.
	Offset r3.Vec

	// ChannelOrder is the rotation axis order used by the file format.
	ChannelOrder rotation.Order

	// EndSite is the optional offset of a terminal end site (leaf joints only).
	EndSite *r3.Vec
}

// Skeleton is an immutable, topologically ordered joint hierarchy.
type Skeleton struct {
	joints   []Joint
	index    map[string]int
	children [][]int
	rest     []r3.Vec
	dfs      []int
}

// New validates joints and builds a Skeleton. The slice is copied.
func New(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, fmt.Errorf("%w: no joints", ErrInvalid)
	}

	s := &Skeleton{
		joints:   make([]Joint, len(joints)),
		index:    make(map[string]int, len(joints)),
		children: make([][]int, len(joints)),
		rest:     make([]r3.Vec, len(joints)),
	}

	for i, j := range joints {
		if j.Name == "" {
			return nil, fmt.Errorf("%w: joint %d has no name", ErrInvalid, i)
		}
		if _, dup := s.index[j.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate joint name %q", ErrInvalid, j.Name)
		}
		switch {
		case i == 0 && j.Parent != -1:
			return nil, fmt.Errorf("%w: first joint %q must be the root", ErrInvalid, j.Name)
		case i > 0 && j.Parent == -1:
			return nil, fmt.Errorf("%w: joint %q is a second root", ErrInvalid, j.Name)
		case i > 0 && (j.Parent < 0 || j.Parent >= i):
			return nil, fmt.Errorf("%w: joint %q parent %d does not precede it", ErrInvalid, j.Name, j.Parent)
		}
		if j.ChannelOrder == "" {
			j.ChannelOrder = rotation.DefaultOrder
		}
		if !j.ChannelOrder.Valid() {
			return nil, fmt.Errorf("%w: joint %q: %v", ErrInvalid, j.Name, rotation.ErrInvalidOrder)
		}
		if j.EndSite != nil {
			es := *j.EndSite
			j.EndSite = &es
		}

		s.joints[i] = j
		s.index[j.Name] = i
		if i > 0 {
			s.children[j.Parent] = append(s.children[j.Parent], i)
			s.rest[i] = r3.Add(s.rest[j.Parent], j.Offset)
		}
	}
	s.dfs = s.walk(0, make([]int, 0, len(joints)))

	return s, nil
}

func (s *Skeleton) walk(j int, out []int) []int {
	out = append(out, j)
	for _, c := range s.children[j] {
		out = s.walk(c, out)
	}
	return out
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(joints []Joint) *Skeleton {
	s, err := New(joints)
	if err != nil {
		panic(err)
	}
	return s
}

// NumJoints returns the number of joints including the root.
func (s *Skeleton) NumJoints() int {
	return len(s.joints)
}

// Joint returns a copy of joint i.
func (s *Skeleton) Joint(i int) Joint {
	j := s.joints[i]
	if j.EndSite != nil {
		es := *j.EndSite
		j.EndSite = &es
	}
	return j
}

// Joints returns a copy of all joints in topological order.
func (s *Skeleton) Joints() []Joint {
	out := make([]Joint, len(s.joints))
	for i := range s.joints {
		out[i] = s.Joint(i)
	}
	return out
}

// Parent returns the parent index of joint i (-1 for the root).
func (s *Skeleton) Parent(i int) int {
	return s.joints[i].Parent
}

// Offset returns the rest offset of joint i from its parent.
func (s *Skeleton) Offset(i int) r3.Vec {
	return s.joints[i].Offset
}

// Order returns the rotation channel order of joint i.
func (s *Skeleton) Order(i int) rotation.Order {
	return s.joints[i].ChannelOrder
}

// Index returns the index of the named joint.
func (s *Skeleton) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownJoint, name)
	}
	return i, nil
}

// Children returns the indices of joint i's direct children.
func (s *Skeleton) Children(i int) []int {
	return append([]int(nil), s.children[i]...)
}

// DFSOrder returns the joint indices in depth-first order, children visited
// in index order. This is the order joints appear in a BVH hierarchy and
// therefore the order of their channels on a motion line.
func (s *Skeleton) DFSOrder() []int {
	return append([]int(nil), s.dfs...)
}

// IsLeaf reports whether joint i has no children.
func (s *Skeleton) IsLeaf(i int) bool {
	return len(s.children[i]) == 0
}

// Depth returns the number of ancestors of joint i.
func (s *Skeleton) Depth(i int) int {
	d := 0
	for p := s.joints[i].Parent; p >= 0; p = s.joints[p].Parent {
		d++
	}
	return d
}

// RestPositions returns the global rest-pose position of every joint with the
// root at the origin.
func (s *Skeleton) RestPositions() []r3.Vec {
	return append([]r3.Vec(nil), s.rest...)
}

// Names returns the joint names in topological order.
func (s *Skeleton) Names() []string {
	out := make([]string, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.Name
	}
	return out
}

// ChannelCount returns the number of values one motion line holds:
// root translation (3) plus three rotation channels per joint.
func (s *Skeleton) ChannelCount() int {
	return 3 + 3*len(s.joints)
}

// CheckJointCount returns an IncompatibleError when n differs from the joint count.
func (s *Skeleton) CheckJointCount(what string, n int) error {
	if n != len(s.joints) {
		return &IncompatibleError{What: what, Want: len(s.joints), Got: n}
	}
	return nil
}

// Compatible checks that other has the same joint count and parent structure.
func (s *Skeleton) Compatible(other *Skeleton) error {
	if other == nil {
		return &IncompatibleError{What: "skeleton", Detail: "missing skeleton"}
	}
	if err := s.CheckJointCount("skeleton", other.NumJoints()); err != nil {
		return err
	}
	for i := range s.joints {
		if s.joints[i].Parent != other.joints[i].Parent {
			return &IncompatibleError{
				What:   "skeleton",
				Detail: fmt.Sprintf("joint %d (%s) has parent %d, other has %d", i, s.joints[i].Name, s.joints[i].Parent, other.joints[i].Parent),
			}
		}
	}
	return nil
}
