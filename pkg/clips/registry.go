package clips

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// Registry manages a collection of clips and provides playback.
type Registry struct {
	mu       sync.RWMutex
	skel     *skeleton.Skeleton
	clips    map[string]*motion.Clip
	player   *Player
	callback PlayerCallback
}

// NewRegistry creates a registry whose clips must match skel.
func NewRegistry(skel *skeleton.Skeleton) *Registry {
	return &Registry{
		skel:   skel,
		clips:  make(map[string]*motion.Clip),
		player: NewPlayer(),
	}
}

// LoadDir loads every clip in dir into the registry.
func (r *Registry) LoadDir(dir string) error {
	clips, err := LoadFromDirectory(dir, r.skel)
	if err != nil {
		return err
	}
	for _, clip := range clips {
		if err := r.Register(clip); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a clip, replacing any clip with the same name.
func (r *Registry) Register(clip *motion.Clip) error {
	if clip == nil || clip.Name == "" || clip.Len() == 0 {
		return ErrInvalidClip
	}
	if r.skel != nil {
		if err := clip.Validate(r.skel, 0); err != nil {
			return fmt.Errorf("clip %q: %w", clip.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips[clip.Name] = clip
	return nil
}

// Unregister removes a clip from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clips, name)
}

// Get retrieves a clip by name.
func (r *Registry) Get(name string) (*motion.Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clip, ok := r.clips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return clip, nil
}

// List returns all registered clip names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clips))
	for name := range r.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered clips.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clips)
}

// Categories groups clip names by category.
func (r *Registry) Categories() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make(map[string][]string)
	for name, clip := range r.clips {
		cat := clip.Category
		if cat == "" {
			cat = extractCategory(name)
		}
		categories[cat] = append(categories[cat], name)
	}
	for cat := range categories {
		sort.Strings(categories[cat])
	}
	return categories
}

// Search finds clips whose name, category or description contains query,
// ignoring case.
func (r *Registry) Search(query string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	var matches []string
	for name, clip := range r.clips {
		if strings.Contains(strings.ToLower(name), q) ||
			strings.Contains(strings.ToLower(clip.Category), q) ||
			strings.Contains(strings.ToLower(clip.Description), q) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// SetCallback sets the callback that receives played frames.
func (r *Registry) SetCallback(cb PlayerCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = cb
}

// Play starts playing a clip by name and returns immediately; frames are
// delivered to the callback set by SetCallback.
func (r *Registry) Play(ctx context.Context, name string, opts PlayerOptions) error {
	clip, cb, err := r.prepare(name)
	if err != nil {
		return err
	}
	if r.player.State() != StateStopped {
		return ErrAlreadyPlaying
	}

	go func() {
		_ = r.player.PlayWithOptions(ctx, clip, cb, opts)
	}()
	return nil
}

// PlaySync plays a clip and blocks until complete.
func (r *Registry) PlaySync(ctx context.Context, name string, opts PlayerOptions) error {
	clip, cb, err := r.prepare(name)
	if err != nil {
		return err
	}
	return r.player.PlayWithOptions(ctx, clip, cb, opts)
}

func (r *Registry) prepare(name string) (*motion.Clip, PlayerCallback, error) {
	clip, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}

	r.mu.RLock()
	cb := r.callback
	r.mu.RUnlock()

	if cb == nil {
		return nil, nil, errors.New("clips: no callback set; call SetCallback first")
	}
	return clip, cb, nil
}

// Stop halts the clip being played.
func (r *Registry) Stop() {
	r.player.Stop()
}

// Pause pauses the clip being played.
func (r *Registry) Pause() {
	r.player.Pause()
}

// Resume resumes a paused clip.
func (r *Registry) Resume() {
	r.player.Resume()
}

// State returns the current playback state.
func (r *Registry) State() PlaybackState {
	return r.player.State()
}

// Elapsed returns playback time of the current clip, excluding pauses.
func (r *Registry) Elapsed() time.Duration {
	return r.player.Elapsed()
}

// CurrentClip returns the name of the clip being played.
func (r *Registry) CurrentClip() string {
	if c := r.player.CurrentClip(); c != nil {
		return c.Name
	}
	return ""
}
