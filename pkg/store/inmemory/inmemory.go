// Package inmemory provides an in-process record store for local
// development and tests.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
)

// Driver implements store.Store using an in-memory map guarded by a
// read-write mutex. Reads return deep copies so scans are snapshots.
type Driver struct {
	dimensions int

	mu    sync.RWMutex
	items map[string]*memory.Item

	// order holds item ids in insertion order; List walks it instead of
	// sorting on every read.
	order []string

	seq         int64
	lastCreated time.Time

	now func() time.Time
}

// NewDriver creates an in-memory store with a fixed embedding
// dimension. A dimension of 0 disables dimension checking.
func NewDriver(dimensions int) *Driver {
	return &Driver{
		dimensions: dimensions,
		items:      make(map[string]*memory.Item),
		now:        time.Now,
	}
}

func (d *Driver) validate(item *memory.Item) error {
	if item == nil {
		return fmt.Errorf("%w: nil item", store.ErrInvalidItem)
	}
	if item.OwnerID == "" {
		return fmt.Errorf("%w: owner id is required", store.ErrInvalidItem)
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", store.ErrInvalidItem, item.Kind)
	}
	if item.Kind == memory.KindDocument && item.Title == "" {
		return fmt.Errorf("%w: document title is required", store.ErrInvalidItem)
	}
	if item.HasEmbedding() && d.dimensions > 0 && len(item.Embedding) != d.dimensions {
		return fmt.Errorf("%w: got %d, store is fixed at %d",
			store.ErrDimensionMismatch, len(item.Embedding), d.dimensions)
	}
	return nil
}

// Insert stores a copy of the item, assigning ID, CreatedAt and Seq.
// CreatedAt never moves backwards even if the wall clock does, so the
// per-owner insertion order is observable in List.
func (d *Driver) Insert(ctx context.Context, item *memory.Item) (string, error) {
	if err := d.validate(item); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrStorage, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := item.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := d.items[stored.ID]; exists {
		return "", fmt.Errorf("%w: duplicate id %s", store.ErrInvalidItem, stored.ID)
	}

	d.seq++
	stored.Seq = d.seq

	created := d.now()
	if !created.After(d.lastCreated) {
		created = d.lastCreated.Add(time.Nanosecond)
	}
	d.lastCreated = created
	stored.CreatedAt = created

	d.items[stored.ID] = stored
	d.order = append(d.order, stored.ID)

	return stored.ID, nil
}

// Get retrieves a copy of an item by id.
func (d *Driver) Get(_ context.Context, id string) (*memory.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	item, ok := d.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return item.Clone(), nil
}

// List returns the scoped items in insertion order.
func (d *Driver) List(_ context.Context, scope memory.Scope) ([]*memory.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*memory.Item
	for _, id := range d.order {
		item := d.items[id]
		if scope.Matches(item) {
			result = append(result, item.Clone())
		}
	}
	return result, nil
}

// MissingEmbeddings returns scoped items without an embedding, oldest
// first.
func (d *Driver) MissingEmbeddings(_ context.Context, scope memory.Scope, limit int) ([]*memory.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*memory.Item
	for _, id := range d.order {
		item := d.items[id]
		if !scope.Matches(item) || item.HasEmbedding() {
			continue
		}
		result = append(result, item.Clone())
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// BackfillEmbedding assigns an embedding to an item stored without one.
// A second call on the same item is a no-op.
func (d *Driver) BackfillEmbedding(_ context.Context, id string, embedding []float32) error {
	if d.dimensions > 0 && len(embedding) != d.dimensions {
		return fmt.Errorf("%w: got %d, store is fixed at %d",
			store.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	item, ok := d.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if item.HasEmbedding() {
		return nil
	}

	item.Embedding = make([]float32, len(embedding))
	copy(item.Embedding, embedding)
	return nil
}

// Count returns the number of stored items.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

var _ store.Store = (*Driver)(nil)
