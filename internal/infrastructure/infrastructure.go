// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, database, storage, vector index,
// provider gateway, credential and session tables) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/migrations"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/internal/vectors/memory"
	"github.com/JaimeStill/rag-lab/internal/vectors/qdrant"
	"github.com/JaimeStill/rag-lab/pkg/database"
	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
	"github.com/JaimeStill/rag-lab/pkg/logging"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Vectors   vectors.Index
	Providers *providers.Gateway
	Users     users.System
	Sessions  *sessions.Manager
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	gw, err := providers.New(&cfg.Providers, logger)
	if err != nil {
		return nil, fmt.Errorf("providers init failed: %w", err)
	}

	// A mismatch is not fatal: another provider may still fit the index.
	if err := gw.Active().CheckDimensions(cfg.Vectors.Dimensions); err != nil {
		logger.Warn("active provider cannot write to the vector index", "error", err)
	}

	accounts, err := users.New(&cfg.Users, logger)
	if err != nil {
		return nil, fmt.Errorf("users init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Vectors:   newIndex(&cfg.Vectors, logger),
		Providers: gw,
		Users:     accounts,
		Sessions:  sessions.NewManager(sessions.NewFileStore(cfg.Sessions.Path, logger), logger),
	}, nil
}

func newIndex(cfg *config.VectorsConfig, logger *slog.Logger) vectors.Index {
	switch cfg.Backend {
	case config.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			Collection: cfg.Qdrant.Collection,
			APIKey:     cfg.Qdrant.APIKey,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Qdrant.TimeoutDuration(),
		}, logger)
	default:
		return memory.New(cfg.Dimensions, logger)
	}
}

// Start applies pending migrations and registers every system with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := migrations.Up(i.Database.Connection(), i.Database.Driver()); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Vectors.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("vectors start failed: %w", err)
	}
	return nil
}
