package phase

import (
	"errors"
	"fmt"
)

// ErrEncoding is matched by every EncodingError.
var ErrEncoding = errors.New("phase: encoding failed")

// EncodingError reports a window that cannot be encoded.
type EncodingError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("phase: %s: %v", e.Reason, e.Err)
	}
	return "phase: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is matches ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
