// Package recall is the retrieval orchestrator: given a query and a
// scope it embeds the query, ranks stored memory by similarity, and
// assembles a bounded context block with provenance. It performs no
// writes; remembering the resulting exchange is the caller's
// responsibility after generation completes, so a failed generation
// never pollutes memory.
package recall

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/assemble"
	"github.com/kimbleai/engram/pkg/embeddings"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/search"
)

// Result is the outcome of a retrieval. A Degraded result with an
// empty Context is a successful "proceed without grounding" signal,
// not an error: callers must not mistake graceful degradation for a
// hard failure.
type Result struct {
	// Context is the assembled context text; empty when no relevant
	// memory exists.
	Context string

	// Provenance lists the source titles backing Context, in order.
	Provenance []string

	// UsedCount is the number of sources included.
	UsedCount int

	// Degraded is true when the embedding provider was unavailable and
	// retrieval was skipped entirely.
	Degraded bool
}

// Recaller orchestrates retrieval.
type Recaller struct {
	embedder     embeddings.Embedder
	engine       *search.Engine
	searchOpts   search.Options
	assembleOpts assemble.Options
	logger       *zap.Logger
}

// Config holds the recaller's collaborators and policy.
type Config struct {
	// Embedder generates the query embedding. Required.
	Embedder embeddings.Embedder

	// Engine ranks stored memory. Required.
	Engine *search.Engine

	// SearchOptions defaults to search.DefaultOptions() when zero.
	SearchOptions search.Options

	// AssembleOptions control context assembly.
	AssembleOptions assemble.Options

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// NewRecaller creates a Recaller.
func NewRecaller(c Config) (*Recaller, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Engine == nil {
		return nil, errors.New("search engine is required")
	}
	if c.SearchOptions == (search.Options{}) {
		c.SearchOptions = search.DefaultOptions()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Recaller{
		embedder:     c.Embedder,
		engine:       c.Engine,
		searchOpts:   c.SearchOptions,
		assembleOpts: c.AssembleOptions,
		logger:       c.Logger,
	}, nil
}

// Retrieve finds the most relevant memory for the query within the
// scope. When the embedding provider is unavailable it returns an
// empty Degraded result and a nil error; storage failures surface as
// errors.
func (r *Recaller) Retrieve(ctx context.Context, scope memory.Scope, queryText string) (Result, error) {
	queryVec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		r.logger.Warn("query embedding unavailable, retrieval degraded",
			zap.String("owner", scope.OwnerID),
			zap.Error(err),
		)
		return Result{Degraded: true}, nil
	}

	matches, err := r.engine.Search(ctx, queryVec, scope, r.searchOpts)
	if err != nil {
		return Result{}, err
	}

	assembled := assemble.Assemble(matches, r.assembleOpts)

	r.logger.Debug("retrieval complete",
		zap.String("owner", scope.OwnerID),
		zap.Int("matches", len(matches)),
		zap.Int("used", len(assembled.Provenance)),
	)

	return Result{
		Context:    assembled.Text,
		Provenance: assembled.Provenance,
		UsedCount:  len(assembled.Provenance),
	}, nil
}
