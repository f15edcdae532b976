// Package embedding maps text spans to fixed-dimension vectors.
package embedding

import (
	"context"
	"log/slog"
)

// Provider maps text to a fixed-dimension numeric vector. Chunks and
// queries must be embedded by the same provider; mixing providers puts
// vectors in incompatible spaces.
type Provider interface {
	// Embed returns the vector for a single text span.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this provider produces.
	Dimension() int
}

// NewProvider returns the OpenAI-backed provider when an API key is
// configured, and otherwise degrades to the deterministic hash provider so
// the pipeline stays exercisable end to end. The fallback is not
// production quality; it only preserves determinism and dimension.
func NewProvider(apiKey string, dimension int, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		logger.Warn("no embedding API key configured, using deterministic hash embeddings")
		return NewHashProvider(dimension)
	}
	return NewOpenAIProvider(apiKey, dimension)
}
