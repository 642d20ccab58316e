// Package deps wires the configured store, embedder, and publisher for
// CLI commands. Commands build a Deps once in RunE and close it on exit.
package deps

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/config"
	"github.com/kimbleai/engram/pkg/dotdir"
	"github.com/kimbleai/engram/pkg/embeddings"
	embedutils "github.com/kimbleai/engram/pkg/embeddings/utils"
	"github.com/kimbleai/engram/pkg/eventstream"
	"github.com/kimbleai/engram/pkg/eventstream/kafka"
	"github.com/kimbleai/engram/pkg/eventstream/nop"
	"github.com/kimbleai/engram/pkg/logger"
	"github.com/kimbleai/engram/pkg/store"
	"github.com/kimbleai/engram/pkg/store/inmemory"
	"github.com/kimbleai/engram/pkg/store/postgres"
	"github.com/kimbleai/engram/pkg/store/sqlite"
)

const defaultSQLiteFile = "engram.db"

// Deps holds the wired collaborators for a CLI command.
type Deps struct {
	Cfg       *config.Config
	Store     store.Store
	Embedder  embeddings.Embedder
	Publisher eventstream.Publisher
	Logger    *zap.Logger
}

// Build resolves configuration and constructs the store, embedder, and
// publisher it selects. Configuration errors are fatal here, before any
// command logic runs.
func Build(ctx context.Context, configDir string, debug bool) (*Deps, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := config.UnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewLogger(debug)

	s, err := newStore(ctx, cfg, configDir, log)
	if err != nil {
		return nil, err
	}

	embedder, err := embedutils.NewEmbedder(&embedutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		APIKey:       cfg.Embedding.APIKey,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		Cache:        cfg.Embedding.Cache,
		Logger:       log,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		embedder.Close()
		s.Close()
		return nil, err
	}

	return &Deps{
		Cfg:       cfg,
		Store:     s,
		Embedder:  embedder,
		Publisher: publisher,
		Logger:    log,
	}, nil
}

// Close releases everything Build opened.
func (d *Deps) Close() {
	if d.Publisher != nil {
		_ = d.Publisher.Close()
	}
	if d.Embedder != nil {
		_ = d.Embedder.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}

func newStore(ctx context.Context, cfg *config.Config, configDir string, log *zap.Logger) (store.Store, error) {
	switch cfg.Storage.Provider {
	case "inmemory":
		return inmemory.NewDriver(cfg.Embedding.Dimensions), nil

	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			target, err := dotdir.NewManager().Target(configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
			path = filepath.Join(target, defaultSQLiteFile)
		}
		return sqlite.NewDriver(sqlite.Config{
			DBPath:     path,
			Dimensions: cfg.Embedding.Dimensions,
		}, log)

	case "postgres":
		return postgres.NewDriver(ctx, postgres.Config{
			DSN:        cfg.Storage.PostgresDSN,
			Dimensions: cfg.Embedding.Dimensions,
		}, log)

	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Storage.Provider)
	}
}

func newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		})
	default:
		return nop.NewPublisher(), nil
	}
}
