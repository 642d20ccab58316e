package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/kimbleai/engram/pkg/eventstream"
)

// MockPublisher is a test publisher that captures published events
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryRecordedEvent

	// Err, when set, is returned from every PublishMemory call.
	Err error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishMemory(_ context.Context, event *eventstream.MemoryRecordedEvent) error {
	if event == nil {
		return errors.New("nil event")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (m *MockPublisher) Events() []*eventstream.MemoryRecordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*eventstream.MemoryRecordedEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}
