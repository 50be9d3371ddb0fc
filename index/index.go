// Package index stores description-tagged entries and ranks them by cosine
// similarity. The store is append-only: entries are immutable once added,
// there is no delete, update, or eviction.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/snow-ghost/rewriter/embeddings"
)

// Hit is one ranked search result.
type Hit[T any] struct {
	ID          int
	Score       float64
	Description string
	Value       T
}

type entry[T any] struct {
	description string
	embedding   []float32 // unit length
	value       T
}

// Index is an in-memory append-only similarity index. Reads run
// concurrently; Add is mutually exclusive with other adds and is never
// observed partially by readers.
type Index[T any] struct {
	embedder embeddings.Embedder

	mu      sync.RWMutex
	entries []entry[T]
}

// New creates an index that embeds descriptions with embedder.
func New[T any](embedder embeddings.Embedder) *Index[T] {
	return &Index[T]{embedder: embedder}
}

// Add embeds description, assigns the next sequential identifier, and
// appends the entry. The entry is visible to every Nearest call that starts
// after Add returns.
func (ix *Index[T]) Add(ctx context.Context, description string, value T) (int, error) {
	vec, err := ix.embedder.EmbedText(ctx, description)
	if err != nil {
		return 0, fmt.Errorf("embed description: %w", err)
	}
	normalize(vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	id := len(ix.entries)
	ix.entries = append(ix.entries, entry[T]{description: description, embedding: vec, value: value})
	return id, nil
}

// Nearest ranks entries passing keep by descending cosine similarity to vec
// and returns at most k hits. Exactly equal scores rank by ascending
// insertion order, so repeated calls against an unmodified index return
// identical results. A nil keep admits every entry.
func (ix *Index[T]) Nearest(vec []float32, k int, keep func(T) bool) []Hit[T] {
	if k <= 0 {
		k = 1
	}
	query := make([]float32, len(vec))
	copy(query, vec)
	normalize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit[T], 0, len(ix.entries))
	for id, e := range ix.entries {
		if keep != nil && !keep(e.value) {
			continue
		}
		hits = append(hits, Hit[T]{
			ID:          id,
			Score:       dot(query, e.embedding),
			Description: e.description,
			Value:       e.value,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// NearestText embeds description and delegates to Nearest.
func (ix *Index[T]) NearestText(ctx context.Context, description string, k int, keep func(T) bool) ([]Hit[T], error) {
	vec, err := ix.embedder.EmbedText(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return ix.Nearest(vec, k, keep), nil
}

// Get returns the entry with the given identifier.
func (ix *Index[T]) Get(id int) (T, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var zero T
	if id < 0 || id >= len(ix.entries) {
		return zero, false
	}
	return ix.entries[id].value, true
}

// Len returns the number of entries.
func (ix *Index[T]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
