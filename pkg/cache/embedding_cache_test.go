package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how many times each text was embedded.
type countingEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{calls: make(map[string]int)}
}

func (e *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[text]++
	return []float32{float32(len(text)), 1, 0, 0}, nil
}

func (e *countingEmbedder) Dimension() int { return 4 }

func (e *countingEmbedder) callsFor(text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[text]
}

func TestEmbeddingCacheComputesOnce(t *testing.T) {
	inner := newCountingEmbedder()
	c, err := NewEmbeddingCache(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.EmbedText(ctx, "channeled worker")
	require.NoError(t, err)
	second, err := c.EmbedText(ctx, "channeled worker")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.callsFor("channeled worker"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestEmbeddingCacheReturnsCopies(t *testing.T) {
	c, err := NewEmbeddingCache(newCountingEmbedder(), 16)
	require.NoError(t, err)

	ctx := context.Background()
	vec, err := c.EmbedText(ctx, "abc")
	require.NoError(t, err)
	vec[0] = -1

	again, err := c.EmbedText(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, float32(3), again[0])
}

func TestEmbeddingCacheConcurrent(t *testing.T) {
	inner := newCountingEmbedder()
	c, err := NewEmbeddingCache(inner, 16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.EmbedText(context.Background(), "same text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Singleflight collapses concurrent duplicates; the LRU handles the rest.
	assert.LessOrEqual(t, inner.callsFor("same text"), 2)
}

// ctxEmbedder fails when its context is already done, like any embedder
// that respects cancellation.
type ctxEmbedder struct{}

func (ctxEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []float32{1, 0, 0, 0}, nil
}

func (ctxEmbedder) Dimension() int { return 4 }

func TestEmbedComputationOutlivesCallerContext(t *testing.T) {
	c, err := NewEmbeddingCache(ctxEmbedder{}, 16)
	require.NoError(t, err)

	// The compute is shared across callers piggybacking on the same key,
	// so one cancelled initiator must not poison it for the others.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vec, err := c.EmbedText(ctx, "shared text")
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	// And the result is cached for later callers.
	vec, err = c.EmbedText(context.Background(), "shared text")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, int64(1), c.Stats().Hits)
}
