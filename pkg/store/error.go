package store

import "errors"

var (
	// ErrStorage is returned when the durable medium rejects a read or
	// write. A failed insert means the memory is not recorded and the
	// caller must be told.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound is returned when no item exists for the given id.
	ErrNotFound = errors.New("item not found")

	// ErrDimensionMismatch is returned when an embedding does not match
	// the store's fixed dimension. The dimension is set at store
	// initialization; a mismatch is a configuration error, not a
	// per-record condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidItem is returned when an item fails validation before
	// any write is attempted.
	ErrInvalidItem = errors.New("invalid item")
)
