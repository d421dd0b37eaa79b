// Package clips provides a named library of motion clips and timed playback.
//
// Clips are loaded from BVH files or JSON motion records and played back at
// their frame time, with rotations interpolated between frames.
package clips

import (
	"time"

	"github.com/teslashibe/go-motionblend/pkg/motion"
)

// PlaybackState represents the current state of the player.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// PlayerOptions configures playback behavior.
type PlayerOptions struct {
	// Speed is the playback speed multiplier (1.0 = normal).
	Speed float64

	// Loop restarts the clip when it ends.
	Loop bool
}

// DefaultPlayerOptions returns real-time, single-shot playback.
func DefaultPlayerOptions() PlayerOptions {
	return PlayerOptions{
		Speed: 1.0,
		Loop:  false,
	}
}

// PlayerCallback receives each played frame and the clip time it was sampled
// at. Return false to stop playback.
type PlayerCallback func(frame motion.Frame, elapsed time.Duration) bool
