package clips

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// Player plays a clip at its frame time, interpolating between frames.
type Player struct {
	mu       sync.RWMutex
	state    PlaybackState
	clip     *motion.Clip
	startAt  time.Time
	pausedAt time.Duration
	stopCh   chan struct{}
}

// NewPlayer creates a new clip player.
func NewPlayer() *Player {
	return &Player{
		state:  StateStopped,
		stopCh: make(chan struct{}),
	}
}

// Play plays clip in real time, blocking until it completes or is stopped.
func (p *Player) Play(ctx context.Context, clip *motion.Clip, callback PlayerCallback) error {
	return p.PlayWithOptions(ctx, clip, callback, DefaultPlayerOptions())
}

// PlayWithOptions starts playback with custom options. The callback fires
// once per tick; ticks are one frame time apart divided by the speed.
func (p *Player) PlayWithOptions(ctx context.Context, clip *motion.Clip, callback PlayerCallback, opts PlayerOptions) error {
	if clip == nil || clip.Len() == 0 || clip.FrameTime <= 0 {
		return ErrInvalidClip
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}

	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	p.clip = clip
	p.state = StatePlaying
	p.startAt = time.Now()
	p.pausedAt = 0
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = StateStopped
		p.mu.Unlock()
	}()

	frameTime := time.Duration(clip.FrameTime * float64(time.Second))
	duration := time.Duration(clip.Duration() * float64(time.Second))

	interval := time.Duration(float64(frameTime) / opts.Speed)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stopCh:
			return nil

		case <-ticker.C:
			p.mu.RLock()
			if p.state == StatePaused {
				p.mu.RUnlock()
				continue
			}
			elapsed := p.pausedAt + time.Since(p.startAt)
			p.mu.RUnlock()

			elapsed = time.Duration(float64(elapsed) * opts.Speed)

			if elapsed >= duration {
				if !opts.Loop {
					last := clip.Frames[clip.Len()-1].Clone()
					callback(last, duration)
					return nil
				}
				p.mu.Lock()
				p.startAt = time.Now()
				p.pausedAt = 0
				p.mu.Unlock()
				elapsed = 0
			}

			if !callback(FrameAt(clip.Window, elapsed.Seconds()), elapsed) {
				return nil
			}
		}
	}
}

// FrameAt samples w at t seconds. Roots are interpolated linearly, rotations
// by slerp. Times outside the window clamp to its first or last frame.
func FrameAt(w motion.Window, t float64) motion.Frame {
	n := w.Len()
	if n == 0 {
		return motion.Frame{}
	}
	pos := t / w.FrameTime
	if n == 1 || pos <= 0 || math.IsNaN(pos) {
		return w.Frames[0].Clone()
	}
	i := int(math.Floor(pos))
	if i >= n-1 {
		return w.Frames[n-1].Clone()
	}

	alpha := pos - float64(i)
	a, b := w.Frames[i], w.Frames[i+1]
	out := motion.Frame{
		Root:      r3.Add(a.Root, r3.Scale(alpha, r3.Sub(b.Root, a.Root))),
		Rotations: make([]quat.Number, len(a.Rotations)),
	}
	for j := range a.Rotations {
		out.Rotations[j] = rotation.Slerp(a.Rotations[j], b.Rotations[j], alpha)
	}
	return out
}

// Stop halts playback immediately.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying || p.state == StatePaused {
		close(p.stopCh)
		p.state = StateStopped
	}
}

// Pause temporarily stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		p.pausedAt += time.Since(p.startAt)
		p.state = StatePaused
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePaused {
		p.startAt = time.Now()
		p.state = StatePlaying
	}
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// CurrentClip returns the clip being played, if any.
func (p *Player) CurrentClip() *motion.Clip {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clip
}

// Elapsed returns wall time spent playing, excluding pauses.
func (p *Player) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case StateStopped:
		return 0
	case StatePaused:
		return p.pausedAt
	}
	return p.pausedAt + time.Since(p.startAt)
}
