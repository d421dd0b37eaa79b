// Package rotation provides the rotation conventions shared by every stage of
// the pipeline: unit quaternions (gonum num/quat), Euler channel orders as
// declared by a skeleton, axis-angle vectors and heading (yaw about +Y).
//
// Conventions:
//   - Y is up, the character faces +Z at zero heading.
//   - An Euler Order lists axes in composition order: ZXY means
//     R = Rz(a0) * Rx(a1) * Ry(a2), which is how BVH channels are applied.
//   - Quaternions compose left to right as parent ∘ child (Mul(parent, child)).
package rotation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder is returned when a channel order is not a permutation of XYZ.
var ErrInvalidOrder = errors.New("rotation: invalid channel order")

// Order is the axis sequence of a joint's rotation channels.
type Order string

// Supported Tait-Bryan orders.
const (
	XYZ Order = "XYZ"
	XZY Order = "XZY"
	YXZ Order = "YXZ"
	YZX Order = "YZX"
	ZXY Order = "ZXY"
	ZYX Order = "ZYX"
)

// DefaultOrder is the order used when a descriptor does not declare one.
const DefaultOrder = ZXY

// ParseOrder parses an order such as "zxy" or "ZXY".
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToUpper(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
	return o, nil
}

// ParseChannels derives an order from BVH rotation channel names, e.g.
// ["Zrotation", "Xrotation", "Yrotation"]. Position channels are skipped.
func ParseChannels(channels []string) (Order, error) {
	var b strings.Builder
	for _, ch := range channels {
		lower := strings.ToLower(ch)
		if !strings.HasSuffix(lower, "rotation") || len(ch) == 0 {
			continue
		}
		b.WriteByte(ch[0])
	}
	return ParseOrder(b.String())
}

// Valid reports whether o is a permutation of X, Y and Z.
func (o Order) Valid() bool {
	if len(o) != 3 {
		return false
	}
	var seen [3]bool
	for i := 0; i < 3; i++ {
		a := axisIndex(o[i])
		if a < 0 || seen[a] {
			return false
		}
		seen[a] = true
	}
	return true
}

// Channels returns the BVH channel names for the order.
func (o Order) Channels() []string {
	out := make([]string, 0, 3)
	for i := 0; i < len(o); i++ {
		out = append(out, string(o[i])+"rotation")
	}
	return out
}

// String implements fmt.Stringer.
func (o Order) String() string {
	return string(o)
}

func (o Order) axes() [3]int {
	return [3]int{axisIndex(o[0]), axisIndex(o[1]), axisIndex(o[2])}
}

// cyclic reports whether the axis sequence is an even permutation of XYZ.
func (o Order) cyclic() bool {
	a := o.axes()
	return (a[1]-a[0]+3)%3 == 1
}

func axisIndex(c byte) int {
	switch c {
	case 'X', 'x':
		return 0
	case 'Y', 'y':
		return 1
	case 'Z', 'z':
		return 2
	default:
		return -1
	}
}
