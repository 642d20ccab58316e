// Package eventstream defines transport-neutral events emitted when a
// memory item is durably recorded, and the Publisher boundary that
// delivers them.
package eventstream

import (
	"time"

	"github.com/kimbleai/engram/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryRecorded is emitted after an item is durably
	// inserted into the record store.
	EventTypeMemoryRecorded = "engram.memory.recorded"
)

// MemoryRecordedEvent is the payload published after a durable insert.
type MemoryRecordedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	OwnerID       string      `json:"owner_id"`
	ProjectID     string      `json:"project_id,omitempty"`
	ItemID        string      `json:"item_id"`
	Kind          memory.Kind `json:"kind"`
	Title         string      `json:"title"`
	Embedded      bool        `json:"embedded"`
	SizeBytes     int64       `json:"size_bytes,omitempty"`
}
