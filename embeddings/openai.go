package embeddings

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/pkg/limiter"
	"github.com/snow-ghost/rewriter/pkg/tokens"
	"github.com/snow-ghost/rewriter/pkg/tracing"
)

// OpenAIEmbedder implements Embedder against OpenAI's embedding API. Calls
// go through a rate limiter and circuit breaker; inputs longer than the
// model's window are truncated by token count.
type OpenAIEmbedder struct {
	client  *openai.Client
	config  *EmbeddingConfig
	guard   *limiter.Guard
	encoder tokens.Encoder
	tracer  *tracing.Tracer
}

// NewOpenAIEmbedder creates a remote embedder. The API key comes from
// OPENAI_API_KEY; a missing key means the backend cannot be used at all.
func NewOpenAIEmbedder(config *EmbeddingConfig) (*OpenAIEmbedder, error) {
	if config == nil {
		config = DefaultOpenAIConfig()
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", core.ErrBackendUnavailable)
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(apiKey),
		config:  config,
		guard:   limiter.NewGuard(limiter.DefaultGuardConfig("openai-embeddings")),
		encoder: newEncoder("cl100k_base"),
		tracer:  tracing.Global("rewriter/embeddings"),
	}, nil
}

// newEncoder prefers the exact tokenizer; when its data cannot be loaded
// (offline deployments), the byte-length heuristic still bounds inputs.
func newEncoder(encodingName string) tokens.Encoder {
	encoder, err := tokens.NewTiktokenEncoder(encodingName)
	if err != nil {
		return tokens.NewHeuristicEncoder()
	}
	return encoder
}

// EmbedText converts text to a vector using the embedding API.
func (o *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	ctx, span := o.tracer.StartEmbedSpan(ctx, o.config.Model, len(text))
	defer span.End()

	text, err := o.encoder.Truncate(text, o.config.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("truncate input: %w", err)
	}

	var result []float32
	err = o.guard.Do(ctx, func(ctx context.Context) error {
		req := openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(o.config.Model),
		}
		resp, err := o.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("no embeddings returned")
		}
		embedding := resp.Data[0].Embedding
		result = make([]float32, len(embedding))
		copy(result, embedding)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	return result, nil
}

// Dimension reports the configured vector width.
func (o *OpenAIEmbedder) Dimension() int { return o.config.Dimension }

// GetConfig returns the embedder configuration.
func (o *OpenAIEmbedder) GetConfig() *EmbeddingConfig { return o.config }
