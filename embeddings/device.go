package embeddings

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/snow-ghost/rewriter/core"
)

// Device is the compute backend the local model runs on. The strategy is
// chosen once at configuration time and threaded through the embedder's
// constructor, never read from a global at call time.
type Device interface {
	Name() string

	// Acquire reserves the device for one computation and returns a release
	// function. CPU acquisition never blocks; a GPU is a serially-accessed
	// resource, so waiters queue and honor context cancellation.
	Acquire(ctx context.Context) (release func(), err error)
}

type cpuDevice struct{}

// CPU returns the freely parallel default device.
func CPU() Device { return cpuDevice{} }

func (cpuDevice) Name() string { return "cpu" }

func (cpuDevice) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type gpuDevice struct {
	index int
	sem   *semaphore.Weighted
}

// GPU returns the device with the given index, probing availability up
// front so a misconfigured deployment fails at startup rather than on the
// first request.
func GPU(index int) (Device, error) {
	if err := probeGPU(index); err != nil {
		return nil, fmt.Errorf("%w: gpu %d: %v", core.ErrBackendUnavailable, index, err)
	}
	return &gpuDevice{index: index, sem: semaphore.NewWeighted(1)}, nil
}

func (g *gpuDevice) Name() string { return fmt.Sprintf("gpu:%d", g.index) }

func (g *gpuDevice) Acquire(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		// Cancelled while queued; the device stays usable for the next caller.
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// probeGPU checks for the device node the NVIDIA driver exposes.
func probeGPU(index int) error {
	path := fmt.Sprintf("/dev/nvidia%d", index)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("device %s not present", path)
	}
	return nil
}
