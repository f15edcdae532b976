package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// HashProvider produces deterministic pseudo-embeddings derived from a
// string hash. It exists so the retrieval pipeline keeps working when no
// real embedding service is available; the vectors carry no semantic
// signal beyond equal-text-equal-vector.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash provider emitting vectors of the given
// dimension.
func NewHashProvider(dimension int) *HashProvider {
	return &HashProvider{dimension: dimension}
}

// Embed returns the deterministic vector for text.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return hashVector(text, p.dimension), nil
}

// EmbedBatch returns deterministic vectors for each text.
func (p *HashProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, p.dimension)
	}
	return vectors, nil
}

// Dimension returns the configured vector dimension.
func (p *HashProvider) Dimension() int {
	return p.dimension
}

// hashVector expands an FNV-1a hash of text into a unit vector using a
// linear congruential generator, so the same text always yields the same
// vector.
func hashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%2000)/1000.0 - 1.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
