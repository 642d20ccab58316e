// Package cached wraps an Embedder with a ristretto read-through cache
// so repeated queries do not pay for a provider round trip.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/embeddings"
)

const (
	defaultMaxEntries = 10_000

	// float32 vector cost approximation per entry; ristretto only needs
	// relative weights.
	bytesPerDimension = 4
)

// Embedder decorates another Embedder with an in-process cache keyed by
// the input text. Provider failures are never cached.
type Embedder struct {
	inner  embeddings.Embedder
	cache  *ristretto.Cache
	logger *zap.Logger
}

// Config holds configuration for the caching embedder.
type Config struct {
	// MaxEntries bounds the number of cached vectors. Defaults to
	// 10000 if zero.
	MaxEntries int64
}

// NewEmbedder wraps inner with a cache.
func NewEmbedder(inner embeddings.Embedder, cfg Config, logger *zap.Logger) (*Embedder, error) {
	maxEntries := cfg.MaxEntries
	if maxEntries == 0 {
		maxEntries = defaultMaxEntries
	}

	cost := int64(inner.Dimensions() * bytesPerDimension)
	if cost == 0 {
		cost = 1
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries * cost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	return &Embedder{
		inner:  inner,
		cache:  cache,
		logger: logger,
	}, nil
}

// Embed returns a cached vector when available, otherwise delegates to
// the wrapped embedder and caches the result.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			e.logger.Debug("embedding cache hit", zap.Int("text_len", len(text)))
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec, int64(len(vec)*bytesPerDimension))
	return vec, nil
}

// Dimensions returns the wrapped embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Wait blocks until pending cache writes are applied. Intended for
// tests that assert on hit behavior.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Close releases the cache and the wrapped embedder.
func (e *Embedder) Close() error {
	e.cache.Close()
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
