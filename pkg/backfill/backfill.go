// Package backfill assigns embeddings to memory items that were stored
// while the embedding provider was unavailable, making them visible to
// similarity search again.
package backfill

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/embeddings"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
)

// Options configures backfill behavior.
type Options struct {
	// BatchSize bounds how many candidates are fetched per run.
	// Values <= 0 mean no limit.
	BatchSize int

	// DryRun reports what would be backfilled without writing.
	DryRun bool
}

// Result summarizes a backfill run.
type Result struct {
	// Scanned is the number of candidate items examined.
	Scanned int

	// Backfilled is the number of items that received an embedding
	// (or would have, under DryRun).
	Backfilled int

	// Skipped is the number of candidates with no canonical text.
	Skipped int

	// Failed is the number of candidates whose embedding or write
	// failed; they remain candidates for a later run.
	Failed int
}

// Backfiller embeds and backfills items missing an embedding.
type Backfiller struct {
	store    store.Store
	embedder embeddings.Embedder
	options  Options
	logger   *zap.Logger
}

// NewBackfiller creates a Backfiller over the given store and embedder.
func NewBackfiller(s store.Store, e embeddings.Embedder, opts Options, logger *zap.Logger) (*Backfiller, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if e == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Backfiller{
		store:    s,
		embedder: e,
		options:  opts,
		logger:   logger,
	}, nil
}

// Run performs a single pass over the scoped items missing embeddings.
// Per-item failures are counted and logged, never fatal: the embedding
// provider being flaky is the reason these items exist at all.
func (b *Backfiller) Run(ctx context.Context, scope memory.Scope) (*Result, error) {
	candidates, err := b.store.MissingEmbeddings(ctx, scope, b.options.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("listing backfill candidates: %w", err)
	}

	result := &Result{Scanned: len(candidates)}

	for _, item := range candidates {
		text := item.EmbeddingText()
		if text == "" {
			result.Skipped++
			continue
		}

		vec, err := b.embedder.Embed(ctx, text)
		if err != nil {
			result.Failed++
			b.logger.Warn("failed to embed candidate",
				zap.String("id", item.ID),
				zap.Error(err),
			)
			continue
		}

		if b.options.DryRun {
			result.Backfilled++
			continue
		}

		if err := b.store.BackfillEmbedding(ctx, item.ID, vec); err != nil {
			result.Failed++
			b.logger.Warn("failed to backfill embedding",
				zap.String("id", item.ID),
				zap.Error(err),
			)
			continue
		}

		result.Backfilled++
		b.logger.Debug("embedding backfilled",
			zap.String("id", item.ID),
			zap.Int("dimensions", len(vec)),
		)
	}

	b.logger.Info("backfill run complete",
		zap.String("owner", scope.OwnerID),
		zap.Int("scanned", result.Scanned),
		zap.Int("backfilled", result.Backfilled),
		zap.Int("failed", result.Failed),
		zap.Bool("dry_run", b.options.DryRun),
	)

	return result, nil
}
