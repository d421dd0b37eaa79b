package bvh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// ReadFile parses the BVH file at path and names the clip after the file.
func ReadFile(path string) (*skeleton.Skeleton, *motion.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open BVH file: %w", err)
	}
	defer f.Close()

	skel, clip, err := Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Base(path)
	clip.Name = strings.TrimSuffix(base, filepath.Ext(base))
	return skel, clip, nil
}

// WriteFile writes frames as a BVH file at path.
func WriteFile(path string, skel *skeleton.Skeleton, frames []motion.Frame, frameTime float64) error {
	data, err := Marshal(skel, frames, frameTime)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write BVH file: %w", err)
	}
	return nil
}
