package api

import (
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/infrastructure"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	RAG           config.RAGConfig
	Auth          config.AuthConfig
	MaxUploadSize int64
	DeletedBlobs  storage.BlobPolicy
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		RAG:            cfg.RAG,
		Auth:           cfg.Auth,
		MaxUploadSize:  cfg.Storage.MaxUploadSizeBytes(),
		DeletedBlobs:   cfg.Storage.DeletedBlobs,
	}
}
