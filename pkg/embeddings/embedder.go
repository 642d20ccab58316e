// Package embeddings defines the embedding provider boundary.
package embeddings

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the embedding provider is unreachable
// or mis-configured. Callers degrade gracefully: writes proceed without
// an embedding and retrieval returns an empty, non-error result.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding of fixed dimension.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size the provider
	// produces. The record store is fixed to this dimension for its
	// lifetime.
	Dimensions() int

	// Close releases any resources held by the embedder.
	Close() error
}
