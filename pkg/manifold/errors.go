package manifold

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("manifold: decode failed")

	// ErrShape is returned when encoder inputs disagree in length.
	ErrShape = errors.New("manifold: shape mismatch")
)

// DecodeError reports a decode call on non-finite or mis-shaped input, a
// decode whose output is not finite, or an encode whose latent is not finite.
type DecodeError struct {
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("manifold: decode: %s", e.Reason)
}

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
