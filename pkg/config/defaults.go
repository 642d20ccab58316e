package config

const (
	defaultStorageProvider = "sqlite"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultSearchThreshold = 0.7
	defaultSearchTopK      = 5

	defaultAssembleMaxItems = 3
	defaultAssembleMaxChars = 2000

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "engram.memory"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			Cache:      true,
		},
		Search: SearchConfig{
			Threshold: defaultSearchThreshold,
			TopK:      defaultSearchTopK,
		},
		Assemble: AssembleConfig{
			MaxItems: defaultAssembleMaxItems,
			MaxChars: defaultAssembleMaxChars,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
