package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-motionblend/internal/config"
	"github.com/teslashibe/go-motionblend/internal/log"
	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/clips"
	"github.com/teslashibe/go-motionblend/pkg/model"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/pipeline"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

var errNoSkeleton = errors.New("no skeleton configured; pass --skeleton or set MOTIONBLEND_SKELETON")

// loadSkeleton reads a skeleton from a descriptor or from the hierarchy of a
// BVH file. The BVH clip, if any, is returned as well.
func loadSkeleton(path string) (*skeleton.Skeleton, *motion.Clip, error) {
	if path == "" {
		return nil, nil, errNoSkeleton
	}
	if strings.EqualFold(filepath.Ext(path), ".bvh") {
		return bvh.ReadFile(path)
	}
	skel, err := skeleton.Load(path)
	return skel, nil, err
}

// loadModel loads the configured model. Without a weights file a freshly
// initialized model is built, posed at the BVH's first frame when the
// skeleton came from one.
func loadModel(c config.Config) (*model.Model, error) {
	skel, clip, err := loadSkeleton(c.SkeletonPath)
	if err != nil {
		return nil, err
	}
	if c.ModelPath != "" {
		return model.Load(c.ModelPath, skel)
	}

	log.Warn("no model weights configured, using an untrained model", "seed", c.Seed)
	m, err := model.New(skel, model.DefaultConfig(), c.Seed)
	if err != nil {
		return nil, err
	}
	if clip != nil && clip.Len() > 0 {
		return m.WithReference(clip.Frames[0])
	}
	return m, nil
}

func newPipeline(c config.Config) (*pipeline.Pipeline, error) {
	m, err := loadModel(c)
	if err != nil {
		return nil, err
	}
	backend, err := model.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	exec, err := model.NewExecution(backend, c.Workers)
	if err != nil {
		return nil, err
	}
	return pipeline.New(m, exec,
		pipeline.WithLogger(log.L()),
		pipeline.WithMaxLength(c.Transition.MaxLength),
		pipeline.WithBatchWorkers(c.Workers),
	), nil
}

// loadClip reads a BVH or JSON record file for skel.
func loadClip(path string, skel *skeleton.Skeleton) (*motion.Clip, error) {
	if path == "" {
		return nil, errors.New("missing clip path")
	}
	clip, err := clips.LoadFromFile(path, skel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}
