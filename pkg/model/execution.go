package model

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Backend names an execution strategy.
type Backend string

const (
	// BackendCPU runs work items one after another on the calling goroutine.
	BackendCPU Backend = "cpu"
	// BackendBatched fans work items out over a bounded worker pool.
	BackendBatched Backend = "batched"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendCPU, BackendBatched:
		return b, nil
	case "":
		return BackendCPU, nil
	default:
		return "", fmt.Errorf("model: unknown backend %q", s)
	}
}

// Execution runs independent, data-parallel work items. It is selected once
// at startup and passed to whoever needs it.
type Execution interface {
	// Backend reports the strategy.
	Backend() Backend

	// ForEach calls fn for every index in [0, n) and returns the first error.
	// ctx is consulted before any work is submitted; items already running
	// are never interrupted.
	ForEach(ctx context.Context, n int, fn func(i int) error) error
}

// NewExecution returns the execution context for backend. workers <= 0
// selects GOMAXPROCS.
func NewExecution(backend Backend, workers int) (Execution, error) {
	switch backend {
	case BackendCPU, "":
		return cpuExecution{}, nil
	case BackendBatched:
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		return batchedExecution{workers: workers}, nil
	default:
		return nil, fmt.Errorf("model: unknown backend %q", backend)
	}
}

type cpuExecution struct{}

func (cpuExecution) Backend() Backend { return BackendCPU }

func (cpuExecution) ForEach(ctx context.Context, n int, fn func(i int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

type batchedExecution struct {
	workers int
}

func (batchedExecution) Backend() Backend { return BackendBatched }

func (b batchedExecution) ForEach(ctx context.Context, n int, fn func(i int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(i)
		})
	}
	return g.Wait()
}
