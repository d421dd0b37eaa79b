package skeleton

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned when a joint list does not form a valid hierarchy.
	ErrInvalid = errors.New("skeleton: invalid hierarchy")

	// ErrIncompatible is the sentinel matched by every IncompatibleError.
	ErrIncompatible = errors.New("skeleton: incompatible skeleton")

	// ErrUnknownJoint is returned when a joint name is not part of the skeleton.
	ErrUnknownJoint = errors.New("skeleton: unknown joint")
)

// IncompatibleError reports a joint-count or hierarchy mismatch between two
// skeletons or between a skeleton and motion data.
type IncompatibleError struct {
	// What names the data that did not match (e.g. "source frame").
	What string

	// Want and Got are the expected and actual joint counts.
	Want int
	Got  int

	// Detail carries a hierarchy mismatch description when counts agree.
	Detail string
}

// Error implements the error interface.
func (e *IncompatibleError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("skeleton: incompatible %s: %s", e.What, e.Detail)
	}
	return fmt.Sprintf("skeleton: incompatible %s: want %d joints, got %d", e.What, e.Want, e.Got)
}

// Is matches ErrIncompatible.
func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}
