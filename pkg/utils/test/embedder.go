package testutils

import (
	"context"
	"fmt"

	"github.com/kimbleai/engram/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// Default is returned for any text without a registered embedding.
	Default []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Unavailable causes every Embed call to fail with
	// embeddings.ErrUnavailable, simulating a down provider.
	Unavailable bool

	// Calls records every text passed to Embed, in order.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)

	if m.Unavailable {
		return nil, fmt.Errorf("%w: mock provider down", embeddings.ErrUnavailable)
	}

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrUnavailable, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return m.Default, nil
}

func (m *MockEmbedder) Dimensions() int {
	return len(m.Default)
}

func (m *MockEmbedder) Close() error {
	return nil
}
