// Package search ranks stored memory items by cosine similarity
// against a query embedding within an owner/project scope.
package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
)

const (
	// DefaultThreshold is the minimum similarity score for a candidate
	// to be considered relevant.
	DefaultThreshold = 0.7

	// DefaultTopK is the default number of results returned.
	DefaultTopK = 5
)

// Options control a single search call.
type Options struct {
	// Threshold is the minimum score kept. Values <= 0 disable the
	// filter entirely, so even negative-similarity candidates survive;
	// use DefaultOptions for the standard policy.
	Threshold float64

	// TopK truncates the ranked result. Values <= 0 fall back to
	// DefaultTopK.
	TopK int
}

// DefaultOptions returns the standard retrieval policy.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, TopK: DefaultTopK}
}

// Match pairs a stored item with its similarity score.
type Match struct {
	Item  *memory.Item
	Score float64
}

// Engine performs brute-force similarity search over the record store.
// The linear scan over the scoped candidate set is the contract: it
// returns exactly the candidates a full scan would, with recall 1.0.
type Engine struct {
	store  store.Store
	logger *zap.Logger
}

// NewEngine creates a search engine over the given store.
func NewEngine(s store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// Search ranks the scoped candidates by cosine similarity against the
// query vector. Candidates without an embedding are excluded, not
// scored as zero. Results are sorted by score descending; exact ties
// order by CreatedAt descending then Seq descending, favoring fresher
// memory. An empty candidate set or empty query vector yields an empty
// result, never an error.
func (e *Engine) Search(ctx context.Context, queryVec []float32, scope memory.Scope, opts Options) ([]Match, error) {
	if len(queryVec) == 0 {
		return nil, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidates, err := e.store.List(ctx, scope)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, item := range candidates {
		if !item.HasEmbedding() {
			continue
		}
		if len(item.Embedding) != len(queryVec) {
			// Should be impossible with a dimension-checked store.
			e.logger.Warn("skipping candidate with mismatched embedding dimension",
				zap.String("id", item.ID),
				zap.Int("got", len(item.Embedding)),
				zap.Int("want", len(queryVec)),
			)
			continue
		}

		score := Cosine(queryVec, item.Embedding)
		if opts.Threshold > 0 && score < opts.Threshold {
			continue
		}
		matches = append(matches, Match{Item: item, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Item.CreatedAt.Equal(matches[j].Item.CreatedAt) {
			return matches[i].Item.CreatedAt.After(matches[j].Item.CreatedAt)
		}
		return matches[i].Item.Seq > matches[j].Item.Seq
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	e.logger.Debug("search complete",
		zap.String("owner", scope.OwnerID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}
