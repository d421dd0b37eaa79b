package clips

import "errors"

var (
	// ErrNotFound is returned when a clip is not registered.
	ErrNotFound = errors.New("clips: clip not found")

	// ErrAlreadyPlaying is returned when trying to play while already playing.
	ErrAlreadyPlaying = errors.New("clips: clip already playing")

	// ErrInvalidClip is returned when a clip file is malformed or empty.
	ErrInvalidClip = errors.New("clips: invalid clip data")

	// ErrUnsupportedFormat is returned for files that are neither BVH nor JSON.
	ErrUnsupportedFormat = errors.New("clips: unsupported clip format")
)
