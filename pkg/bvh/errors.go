package bvh

import (
	"errors"
	"fmt"
)

// ErrSerialization is matched by every SerializationError.
var ErrSerialization = errors.New("bvh: serialization failed")

// SerializationError reports motion data that cannot be written or read in
// the BVH channel layout. Frame is -1 when the problem is not tied to a frame.
type SerializationError struct {
	Frame  int
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	msg := "bvh: " + e.Reason
	if e.Frame >= 0 {
		msg = fmt.Sprintf("bvh: frame %d: %s", e.Frame, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Is matches ErrSerialization.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

func serr(frame int, reason string, err error) error {
	return &SerializationError{Frame: frame, Reason: reason, Err: err}
}
