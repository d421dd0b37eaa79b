package clips

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/internal/fixture"
	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

func writeLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	skel := fixture.Humanoid()

	walk := fixture.Walk(20).Clip("walk")
	if err := bvh.WriteFile(filepath.Join(dir, "walk_02.bvh"), skel, walk.Frames, walk.FrameTime); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "walk_02.txt"), []byte("steady walk\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	idle := motion.Window{FrameTime: 1.0 / 60}
	for i := 0; i < 8; i++ {
		idle.Frames = append(idle.Frames, motion.RestFrame(skel.NumJoints()))
	}
	rec, err := motion.ToRecord(idle, skel)
	if err != nil {
		t.Fatalf("ToRecord failed: %v", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "idle.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	// Not a clip.
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# clips"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestExtractCategory(t *testing.T) {
	tests := []struct{ name, want string }{
		{"walk_02", "walk"},
		{"dance3", "dance"},
		{"run-1", "run"},
		{"idle", "idle"},
		{"42", "42"},
	}
	for _, tt := range tests {
		if got := extractCategory(tt.name); got != tt.want {
			t.Errorf("extractCategory(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := writeLibrary(t)

	clips, err := LoadFromDirectory(dir, fixture.Humanoid())
	if err != nil {
		t.Fatalf("LoadFromDirectory failed: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("Expected 2 clips, got %d", len(clips))
	}

	idle, walk := clips[0], clips[1]
	if idle.Name != "idle" || walk.Name != "walk_02" {
		t.Fatalf("Unexpected clip names %q, %q", idle.Name, walk.Name)
	}
	if idle.Len() != 8 || math.Abs(idle.FrameTime-1.0/60) > 1e-12 {
		t.Errorf("idle: %d frames at %v", idle.Len(), idle.FrameTime)
	}
	if walk.Len() != 20 {
		t.Errorf("walk: expected 20 frames, got %d", walk.Len())
	}
	if walk.Category != "walk" {
		t.Errorf("Expected category walk, got %q", walk.Category)
	}
	if walk.Description != "steady walk" {
		t.Errorf("Expected description from sidecar, got %q", walk.Description)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	skel := fixture.Humanoid()

	other := skeleton.MustNew([]skeleton.Joint{
		{Name: "Root", Parent: -1, ChannelOrder: rotation.ZXY},
		{Name: "Tip", Parent: 0, Offset: r3.Vec{Y: 1}, ChannelOrder: rotation.ZXY},
	})
	small := filepath.Join(dir, "small.bvh")
	frames := []motion.Frame{motion.RestFrame(2)}
	if err := bvh.WriteFile(small, other, frames, motion.DefaultFrameTime); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(small, skel); !errors.Is(err, skeleton.ErrIncompatible) {
		t.Errorf("Expected ErrIncompatible, got %v", err)
	}
	if clip, err := LoadFromFile(small, nil); err != nil || clip.Len() != 1 {
		t.Errorf("Expected BVH to load without a skeleton, got %v", err)
	}

	txt := filepath.Join(dir, "clip.csv")
	if err := os.WriteFile(txt, []byte("1,2,3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(txt, skel); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"frames":[],"frame_time":0.1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(empty, skel); err == nil {
		t.Error("Expected error for empty record")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(fixture.Humanoid())
	if err := reg.LoadDir(writeLibrary(t)); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if reg.Count() != 2 {
		t.Errorf("Expected 2 clips, got %d", reg.Count())
	}
	names := reg.List()
	if len(names) != 2 || names[0] != "idle" || names[1] != "walk_02" {
		t.Errorf("Unexpected list %v", names)
	}

	if _, err := reg.Get("walk_02"); err != nil {
		t.Errorf("Get(walk_02) failed: %v", err)
	}
	if _, err := reg.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	cats := reg.Categories()
	if len(cats["walk"]) != 1 || len(cats["idle"]) != 1 {
		t.Errorf("Unexpected categories %v", cats)
	}

	if m := reg.Search("STEADY"); len(m) != 1 || m[0] != "walk_02" {
		t.Errorf("Search by description: %v", m)
	}
	if m := reg.Search("i"); len(m) != 1 || m[0] != "idle" {
		t.Errorf("Search by name: %v", m)
	}

	bad := &motion.Clip{Name: "bad", Window: motion.Window{
		Frames:    []motion.Frame{motion.RestFrame(3)},
		FrameTime: motion.DefaultFrameTime,
	}}
	if err := reg.Register(bad); !errors.Is(err, skeleton.ErrIncompatible) {
		t.Errorf("Expected ErrIncompatible, got %v", err)
	}

	reg.Unregister("idle")
	if reg.Count() != 1 {
		t.Errorf("Expected 1 clip after Unregister, got %d", reg.Count())
	}

	if err := reg.PlaySync(context.Background(), "walk_02", DefaultPlayerOptions()); err == nil {
		t.Error("Expected error without callback")
	}
}

func TestFrameAt(t *testing.T) {
	a := motion.RestFrame(2)
	b := motion.RestFrame(2)
	b.Root = r3.Vec{X: 10}
	b.Rotations[1] = rotation.FromYaw(math.Pi / 2)
	w := motion.Window{Frames: []motion.Frame{a, b}, FrameTime: 0.1}

	mid := FrameAt(w, 0.05)
	if math.Abs(mid.Root.X-5) > 1e-9 {
		t.Errorf("Expected root x 5, got %v", mid.Root.X)
	}
	if got := rotation.Heading(mid.Rotations[1]); math.Abs(got-math.Pi/4) > 1e-9 {
		t.Errorf("Expected heading pi/4, got %v", got)
	}

	if got := FrameAt(w, -1); got.Root != a.Root {
		t.Errorf("Expected first frame before start, got %v", got.Root)
	}
	if got := FrameAt(w, 5); got.Root != b.Root {
		t.Errorf("Expected last frame after end, got %v", got.Root)
	}
}

func TestPlayer(t *testing.T) {
	clip := fixture.Walk(15).Clip("walk")
	player := NewPlayer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frameCount := 0
	var last motion.Frame
	err := player.PlayWithOptions(ctx, clip, func(frame motion.Frame, elapsed time.Duration) bool {
		frameCount++
		last = frame
		return true
	}, PlayerOptions{Speed: 10})
	if err != nil {
		t.Fatalf("Playback error: %v", err)
	}
	if frameCount == 0 {
		t.Fatal("Expected at least one frame")
	}
	if last.Root != clip.Frames[14].Root {
		t.Errorf("Expected playback to end on the last frame, got %v", last.Root)
	}
	if player.State() != StateStopped {
		t.Errorf("Expected stopped, got %v", player.State())
	}
}

func TestPlayerStop(t *testing.T) {
	clip := fixture.Walk(30).Clip("walk")
	player := NewPlayer()

	started := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		done <- player.PlayWithOptions(context.Background(), clip, func(motion.Frame, time.Duration) bool {
			once.Do(func() { close(started) })
			return true
		}, PlayerOptions{Speed: 0.5, Loop: true})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("playback never started")
	}

	player.Pause()
	if player.State() != StatePaused {
		t.Errorf("Expected paused, got %v", player.State())
	}
	if err := player.PlayWithOptions(context.Background(), clip, func(motion.Frame, time.Duration) bool { return true }, DefaultPlayerOptions()); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("Expected ErrAlreadyPlaying, got %v", err)
	}
	player.Resume()
	player.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil after Stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not stop")
	}
}

func TestPlayerContextCancel(t *testing.T) {
	clip := fixture.Walk(30).Clip("walk")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPlayer().Play(ctx, clip, func(motion.Frame, time.Duration) bool { return true })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
