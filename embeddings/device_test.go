package embeddings

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/snow-ghost/rewriter/core"
)

func TestCPUAcquireNeverBlocks(t *testing.T) {
	release, err := CPU().Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestGPUUnavailableDevice(t *testing.T) {
	// Device index 99 does not exist on any test machine.
	_, err := GPU(99)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestGPUSerializesAccess(t *testing.T) {
	dev := &gpuDevice{index: 0, sem: semaphore.NewWeighted(1)}

	release, err := dev.Acquire(context.Background())
	require.NoError(t, err)

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		r, err := dev.Acquire(context.Background())
		assert.NoError(t, err)
		acquired.Store(true)
		if err == nil {
			r()
		}
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, acquired.Load(), "second acquire must queue behind the first")

	release()
	<-done
	assert.True(t, acquired.Load())
}

func TestGPUAcquireCancellableWhileQueued(t *testing.T) {
	dev := &gpuDevice{index: 0, sem: semaphore.NewWeighted(1)}

	release, err := dev.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = dev.Acquire(ctx)
	require.Error(t, err)

	// Cancellation while queued must not corrupt the device for later use.
	release()
	r, err := dev.Acquire(context.Background())
	require.NoError(t, err)
	r()
}
