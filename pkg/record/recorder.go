// Package record is the memory write path: it persists new documents
// and conversation exchanges, each with its own embedding when the
// provider is reachable.
package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/embeddings"
	"github.com/kimbleai/engram/pkg/eventstream"
	"github.com/kimbleai/engram/pkg/eventstream/nop"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
	"github.com/kimbleai/engram/pkg/utils"
)

// titleRuneCap bounds exchange titles derived from query text.
const titleRuneCap = 80

// Recorder persists memory items. Embedding failures never block an
// insert: the item is stored without an embedding, invisible to search
// until backfilled. Storage failures propagate; a failed insert means
// the memory is not recorded.
type Recorder struct {
	store     store.Store
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// Config holds the recorder's collaborators.
type Config struct {
	// Store is the record store. Required.
	Store store.Store

	// Embedder generates embeddings. Required; providers may still
	// fail per call, which degrades rather than errors.
	Embedder embeddings.Embedder

	// Publisher receives an event after each durable insert. Defaults
	// to the no-op publisher.
	Publisher eventstream.Publisher

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(c Config) (*Recorder, error) {
	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Recorder{
		store:     c.Store,
		embedder:  c.Embedder,
		publisher: c.Publisher,
		logger:    c.Logger,
	}, nil
}

// RecordDocument persists an uploaded document. The embedding
// represents the title and body together.
func (r *Recorder) RecordDocument(ctx context.Context, scope memory.Scope, title, text string) (*memory.Item, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: document title is required", store.ErrInvalidItem)
	}

	item := &memory.Item{
		OwnerID:   scope.OwnerID,
		ProjectID: scope.ProjectID,
		Kind:      memory.KindDocument,
		Title:     title,
		Text:      text,
		SizeBytes: int64(len(text)),
	}

	return r.insert(ctx, item)
}

// RecordExchange persists a completed conversation exchange. The
// embedding represents the query text alone so that future similar
// questions retrieve this exchange; the response is stored as the
// item's text. The full query is persisted too, so a later backfill
// embeds the same text this call would have.
func (r *Recorder) RecordExchange(ctx context.Context, scope memory.Scope, queryText, responseText string) (*memory.Item, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: exchange query text is required", store.ErrInvalidItem)
	}

	item := &memory.Item{
		OwnerID:   scope.OwnerID,
		ProjectID: scope.ProjectID,
		Kind:      memory.KindExchange,
		Title:     deriveTitle(queryText),
		Text:      responseText,
		Query:     queryText,
	}

	return r.insert(ctx, item)
}

func (r *Recorder) insert(ctx context.Context, item *memory.Item) (*memory.Item, error) {
	vec, err := r.embedder.Embed(ctx, item.EmbeddingText())
	if err != nil {
		// Degrade, don't fail: the item stays retrievable by backfill.
		r.logger.Warn("embedding failed, storing item without embedding",
			zap.String("owner", item.OwnerID),
			zap.String("kind", string(item.Kind)),
			zap.Error(err),
		)
	} else {
		item.Embedding = vec
	}

	id, err := r.store.Insert(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id

	stored, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.publish(ctx, stored)

	r.logger.Info("memory recorded",
		zap.String("id", stored.ID),
		zap.String("owner", stored.OwnerID),
		zap.String("kind", string(stored.Kind)),
		zap.Bool("embedded", stored.HasEmbedding()),
	)

	return stored, nil
}

// publish emits a MemoryRecordedEvent. Publish failures are logged,
// never surfaced: the memory is already durable.
func (r *Recorder) publish(ctx context.Context, item *memory.Item) {
	event := &eventstream.MemoryRecordedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		OwnerID:       item.OwnerID,
		ProjectID:     item.ProjectID,
		ItemID:        item.ID,
		Kind:          item.Kind,
		Title:         item.Title,
		Embedded:      item.HasEmbedding(),
		SizeBytes:     item.SizeBytes,
	}

	if err := r.publisher.PublishMemory(ctx, event); err != nil {
		r.logger.Warn("failed to publish memory event",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// deriveTitle turns query text into an exchange title: the first line,
// capped at 80 runes.
func deriveTitle(queryText string) string {
	title := strings.TrimSpace(queryText)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	return utils.Truncate(title, titleRuneCap)
}
