// Package cache memoizes embedding computations. Embedders are
// deterministic for a fixed backend and model, so identical text never needs
// to be embedded twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/snow-ghost/rewriter/embeddings"
)

// Stats tracks cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
}

// EmbeddingCache wraps an Embedder with an LRU of computed vectors and
// singleflight suppression of concurrent duplicate computations.
type EmbeddingCache struct {
	inner embeddings.Embedder
	cache *lru.Cache[string, []float32]
	group singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// NewEmbeddingCache wraps inner with a cache of up to size entries.
func NewEmbeddingCache(inner embeddings.Embedder, size int) (*EmbeddingCache, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &EmbeddingCache{inner: inner, cache: cache}, nil
}

// EmbedText returns the cached vector for text, computing it at most once
// per cache lifetime even under concurrent identical requests.
func (c *EmbeddingCache) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if vec, ok := c.cache.Get(key); ok {
		c.count(true)
		return cloneVector(vec), nil
	}
	c.count(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// The computation is shared by every caller waiting on this key,
		// so it must outlive the first caller's context.
		vec, err := c.inner.EmbedText(context.WithoutCancel(ctx), text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float32)), nil
}

// Dimension reports the wrapped embedder's vector width.
func (c *EmbeddingCache) Dimension() int { return c.inner.Dimension() }

// Stats returns a snapshot of hit/miss counters.
func (c *EmbeddingCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *EmbeddingCache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// cacheKey bounds key size for arbitrarily long inputs.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// cloneVector guards cached entries against caller mutation.
func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
