package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// LoadFromFile loads a clip from a .bvh file or a .json motion record. The
// clip is named after the file. A sibling .txt file, if present, becomes the
// description.
//
// BVH files carry their own hierarchy, which must be compatible with skel
// when skel is non-nil. JSON records are interpreted against skel.
func LoadFromFile(path string, skel *skeleton.Skeleton) (*motion.Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var clip *motion.Clip
	switch ext {
	case ".bvh":
		fileSkel, c, err := bvh.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if skel != nil {
			if err := skel.Compatible(fileSkel); err != nil {
				return nil, fmt.Errorf("clip %q: %w", name, err)
			}
		}
		clip = c
	case ".json":
		if skel == nil {
			return nil, fmt.Errorf("%w: %q is a motion record and needs a skeleton", ErrInvalidClip, name)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read clip file: %w", err)
		}
		defer f.Close()

		rec, err := motion.DecodeRecord(f)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", name, err)
		}
		w, err := motion.FromRecord(rec, skel)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", name, err)
		}
		clip = &motion.Clip{Window: w}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if clip.Len() == 0 {
		return nil, fmt.Errorf("%w: %q has no frames", ErrInvalidClip, name)
	}

	clip.Name = name
	clip.Category = extractCategory(name)
	if desc, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"); err == nil {
		clip.Description = strings.TrimSpace(string(desc))
	}
	return clip, nil
}

// LoadFromDirectory loads every .bvh and .json clip in dir, sorted by file
// name.
func LoadFromDirectory(dir string, skel *skeleton.Skeleton) ([]*motion.Clip, error) {
	var files []string
	for _, pattern := range []string{"*.bvh", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list clip files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	clips := make([]*motion.Clip, 0, len(files))
	for _, file := range files {
		clip, err := LoadFromFile(file, skel)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// extractCategory gets the base name without trailing digits or separators,
// e.g. "walk_02" -> "walk".
func extractCategory(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	for i > 0 && (name[i-1] == '_' || name[i-1] == '-') {
		i--
	}
	if i == 0 {
		return name
	}
	return name[:i]
}
