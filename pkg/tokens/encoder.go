package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder counts and trims tokens for a specific model's tokenizer.
type Encoder interface {
	Count(text string) (int, error)
	Truncate(text string, maxTokens int) (string, error)
}

// TiktokenEncoder implements Encoder using tiktoken-go.
type TiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEncoder creates an encoder for the named tiktoken encoding,
// e.g. "cl100k_base".
func NewTiktokenEncoder(encodingName string) (*TiktokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenEncoder{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (e *TiktokenEncoder) Count(text string) (int, error) {
	return len(e.encoding.Encode(text, nil, nil)), nil
}

// Truncate cuts text down to at most maxTokens tokens, re-decoding the kept
// prefix so the result stays valid UTF-8.
func (e *TiktokenEncoder) Truncate(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", nil
	}
	toks := e.encoding.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text, nil
	}
	return e.encoding.Decode(toks[:maxTokens]), nil
}

// HeuristicEncoder estimates ~4 characters per token. It backs tests and
// deployments where downloading tokenizer data is unwanted.
type HeuristicEncoder struct{}

// NewHeuristicEncoder creates a heuristic encoder.
func NewHeuristicEncoder() *HeuristicEncoder { return &HeuristicEncoder{} }

// Count estimates the number of tokens in text.
func (e *HeuristicEncoder) Count(text string) (int, error) {
	count := len(text) / 4
	if count < 1 && len(text) > 0 {
		count = 1
	}
	return count, nil
}

// Truncate keeps roughly the first maxTokens tokens worth of bytes.
func (e *HeuristicEncoder) Truncate(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", nil
	}
	limit := maxTokens * 4
	if len(text) <= limit {
		return text, nil
	}
	return text[:limit], nil
}
