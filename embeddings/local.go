package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic feature-hashing model: tokens are hashed
// into a fixed number of buckets weighted by log term frequency, then the
// vector is L2-normalized. It is a pure function of its configuration and
// input, which makes retrieval results reproducible across runs and lets
// tests substitute it for remote backends.
type LocalEmbedder struct {
	config *EmbeddingConfig
	device Device
}

// NewLocalEmbedder creates a local embedder computing on the given device.
func NewLocalEmbedder(config *EmbeddingConfig, device Device) *LocalEmbedder {
	if config == nil {
		config = DefaultConfig()
	}
	if device == nil {
		device = CPU()
	}
	return &LocalEmbedder{config: config, device: device}
}

// EmbedText converts text to a normalized feature-hash vector.
func (l *LocalEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	release, err := l.device.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tf := make(map[string]int)
	for _, token := range tokenize(text) {
		tf[token]++
	}

	vector := make([]float32, l.config.Dimension)
	for token, freq := range tf {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(l.config.Dimension))
		// Half the hash space contributes negatively, so unrelated texts
		// land near zero similarity instead of all-positive drift.
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vector[bucket] += sign * float32(1+math.Log(float64(freq)))
	}

	normalize(vector)
	return vector, nil
}

// Dimension reports the configured vector width.
func (l *LocalEmbedder) Dimension() int { return l.config.Dimension }

// GetConfig returns the embedder configuration.
func (l *LocalEmbedder) GetConfig() *EmbeddingConfig { return l.config }

// tokenize lowercases and splits on anything that is not a letter or digit,
// dropping single-rune fragments.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// normalize scales a vector to unit length in place.
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
