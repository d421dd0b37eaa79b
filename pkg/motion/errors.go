package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrWindowLength is matched by every LengthError.
	ErrWindowLength = errors.New("motion: window length mismatch")

	// ErrNonFinite is returned when a frame carries NaN or Inf values.
	ErrNonFinite = errors.New("motion: non-finite value")

	// ErrMalformed is returned for structurally invalid motion data.
	ErrMalformed = errors.New("motion: malformed data")
)

// LengthError reports a window whose frame count differs from the required
// length. Short windows are never padded.
type LengthError struct {
	Want int
	Got  int
}

// Error implements the error interface.
func (e *LengthError) Error() string {
	return fmt.Sprintf("motion: window has %d frames, need %d (%s)", e.Got, e.Want, e.Reason())
}

// Reason describes the mismatch as insufficient or excess data.
func (e *LengthError) Reason() string {
	if e.Got < e.Want {
		return "insufficient data"
	}
	return "excess data"
}

// Is matches ErrWindowLength.
func (e *LengthError) Is(target error) bool {
	return target == ErrWindowLength
}
