package config

// Config is the full engram configuration, persisted as config.toml.
type Config struct {
	Version int `toml:"version" mapstructure:"version"`

	Storage   StorageConfig   `toml:"storage" mapstructure:"storage"`
	Embedding EmbeddingConfig `toml:"embedding" mapstructure:"embedding"`
	Search    SearchConfig    `toml:"search" mapstructure:"search"`
	Assemble  AssembleConfig  `toml:"assemble" mapstructure:"assemble"`
	Events    EventsConfig    `toml:"events" mapstructure:"events"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	// Provider is "inmemory", "sqlite" or "postgres".
	Provider string `toml:"provider" mapstructure:"provider"`

	// SQLitePath is the database file for the sqlite provider.
	SQLitePath string `toml:"sqlite_path" mapstructure:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres provider.
	PostgresDSN string `toml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider" mapstructure:"provider"`

	// Target is the provider base URL.
	Target string `toml:"target" mapstructure:"target"`

	// APIKey authenticates hosted providers. Usually supplied via the
	// ENGRAM_EMBEDDING_API_KEY environment variable rather than the
	// config file.
	APIKey string `toml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the embedding model name.
	Model string `toml:"model" mapstructure:"model"`

	// Dimensions fixes the store's embedding dimension. Changing it
	// against an existing store is a fatal configuration error.
	Dimensions int `toml:"dimensions" mapstructure:"dimensions"`

	// Cache enables the in-process query embedding cache.
	Cache bool `toml:"cache" mapstructure:"cache"`
}

// SearchConfig holds the retrieval policy.
type SearchConfig struct {
	// Threshold is the minimum similarity score kept.
	Threshold float64 `toml:"threshold" mapstructure:"threshold"`

	// TopK caps the number of ranked results.
	TopK int `toml:"top_k" mapstructure:"top_k"`
}

// AssembleConfig holds the context assembly policy.
type AssembleConfig struct {
	// MaxItems caps the number of context blocks.
	MaxItems int `toml:"max_items" mapstructure:"max_items"`

	// MaxChars is the character budget for the assembled context.
	MaxChars int `toml:"max_chars" mapstructure:"max_chars"`
}

// EventsConfig selects and configures the memory event publisher.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider" mapstructure:"provider"`

	// Brokers is the Kafka bootstrap broker list.
	Brokers []string `toml:"brokers,omitempty" mapstructure:"brokers"`

	// Topic is the Kafka topic memory events are published to.
	Topic string `toml:"topic,omitempty" mapstructure:"topic"`
}
