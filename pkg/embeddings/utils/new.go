package embedutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/embeddings"
	"github.com/kimbleai/engram/pkg/embeddings/cached"
	"github.com/kimbleai/engram/pkg/embeddings/ollama"
	"github.com/kimbleai/engram/pkg/embeddings/openai"
)

// NewEmbedderOpts selects and configures an embedding provider.
type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Model        string
	Dimensions   int
	Cache        bool
	Logger       *zap.Logger
}

// NewEmbedder builds an Embedder for the configured provider,
// optionally wrapped with the ristretto cache.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		embedder embeddings.Embedder
		err      error
	)

	switch o.ProviderType {
	case "ollama":
		embedder, err = ollama.NewEmbedder(ollama.Config{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "openai":
		embedder, err = openai.NewEmbedder(openai.Config{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.Cache {
		return cached.NewEmbedder(embedder, cached.Config{}, o.Logger)
	}
	return embedder, nil
}
