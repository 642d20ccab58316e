// Package store defines the vector record store contract: durable,
// append-only storage of embedded memory items partitioned by owner and
// optional project.
package store

import (
	"context"

	"github.com/kimbleai/engram/pkg/memory"
)

// Store persists memory items. Implementations must make Insert atomic
// (an item is either fully visible to subsequent reads or not at all),
// must never reorder visibility within an owner, and must serve reads
// from snapshots so reads and writes do not block each other.
type Store interface {
	// Insert persists a new item and returns its id. The store assigns
	// ID, CreatedAt and Seq; CreatedAt is monotonic per owner even
	// under concurrent inserts. A rejected write fails with ErrStorage
	// and the item is not remembered.
	Insert(ctx context.Context, item *memory.Item) (string, error)

	// Get retrieves an item by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*memory.Item, error)

	// List returns the items visible within the scope, ordered by
	// CreatedAt ascending (Seq breaks exact ties).
	List(ctx context.Context, scope memory.Scope) ([]*memory.Item, error)

	// MissingEmbeddings returns scoped items stored without an
	// embedding, oldest first. A limit <= 0 means no limit.
	MissingEmbeddings(ctx context.Context, scope memory.Scope, limit int) ([]*memory.Item, error)

	// BackfillEmbedding assigns an embedding to an item stored without
	// one. It is idempotent: if the item already has an embedding the
	// call is a no-op, never an overwrite.
	BackfillEmbedding(ctx context.Context, id string, embedding []float32) error

	// Close releases resources held by the store.
	Close() error
}
