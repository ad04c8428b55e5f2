// Package embedding provides text embedding for travel document search.
package embedding

import "context"

// EmbeddingProvider converts text into a dense vector.
type EmbeddingProvider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
