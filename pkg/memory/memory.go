// Package memory defines the data model shared across the engram system:
// the MemoryItem unit that is stored and searched, and the owner/project
// scope that every read is filtered by.
package memory

import "time"

// Kind identifies what a stored item represents.
type Kind string

const (
	// KindDocument is an uploaded document.
	KindDocument Kind = "document"

	// KindExchange is a recorded conversation exchange. Its embedding
	// represents the user's query so that future similar questions
	// retrieve it.
	KindExchange Kind = "exchange"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	return k == KindDocument || k == KindExchange
}

// Item is the unit stored in the record store and ranked by the search
// engine. Items are immutable after insertion; the only permitted
// mutation is a single embedding backfill on an item stored without one.
type Item struct {
	// ID uniquely identifies the item. Assigned by the store on insert
	// when empty; never reused.
	ID string

	// OwnerID is the owning user. Every item belongs to exactly one owner.
	OwnerID string

	// ProjectID optionally groups the item within the owner's space.
	// Empty means ungrouped, i.e. global to the owner.
	ProjectID string

	// Kind is the item type.
	Kind Kind

	// Title labels the item. Required for documents; derived from the
	// query text for exchanges.
	Title string

	// Text is the content used to build context blocks.
	Text string

	// Query is the full query text of an exchange. It is persisted so
	// that a backfill embeds exactly the text the write path would
	// have; Title alone is a lossy first-line derivation.
	Query string

	// Embedding is the fixed-dimension vector for similarity search.
	// Nil when the embedding provider was unavailable at write time.
	Embedding []float32

	// CreatedAt is assigned by the store; non-decreasing in insertion
	// order per owner.
	CreatedAt time.Time

	// Seq is the store's insertion counter, the secondary tie-break
	// when CreatedAt collides.
	Seq int64

	// SizeBytes is the content size for documents.
	SizeBytes int64
}

// HasEmbedding reports whether the item is visible to similarity search.
func (it *Item) HasEmbedding() bool {
	return len(it.Embedding) > 0
}

// EmbeddingText returns the canonical text the item's embedding
// represents. Documents embed title and body together; exchanges embed
// the full query so that similar questions match. Backfill re-derives
// the vector from this text, so it must match what the write path
// embeds.
func (it *Item) EmbeddingText() string {
	switch it.Kind {
	case KindDocument:
		return it.Title + "\n" + it.Text
	case KindExchange:
		if it.Query != "" {
			return it.Query
		}
		return it.Title
	default:
		return it.Text
	}
}

// Clone returns a deep copy so that stores can hand out snapshots
// without exposing internal state.
func (it *Item) Clone() *Item {
	cp := *it
	if it.Embedding != nil {
		cp.Embedding = make([]float32, len(it.Embedding))
		copy(cp.Embedding, it.Embedding)
	}
	return &cp
}

// Scope restricts which items a read or search may see. OwnerID is
// mandatory; cross-owner results are a correctness violation, not a
// policy preference.
type Scope struct {
	OwnerID   string
	ProjectID string
}

// Matches reports whether the item is visible within the scope.
//
// A scope without a project sees the owner's whole space. A scope with
// a project sees that project's items plus the owner's ungrouped items,
// which are global to the owner.
func (s Scope) Matches(it *Item) bool {
	if it == nil || it.OwnerID != s.OwnerID {
		return false
	}
	if s.ProjectID == "" {
		return true
	}
	return it.ProjectID == s.ProjectID || it.ProjectID == ""
}
