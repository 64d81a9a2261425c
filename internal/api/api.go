// Package api assembles the domain systems and mounts their HTTP routes.
package api

import (
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/infrastructure"
	"github.com/JaimeStill/rag-lab/pkg/middleware"
)

// NewHandler builds the API handler, mounted under cfg.API.BasePath.
func NewHandler(cfg *config.Config, infra *infrastructure.Infrastructure) http.Handler {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, runtime, domain, cfg)

	mw := middleware.New()
	mw.Use(middleware.TrimSlash())
	mw.Use(middleware.CORS(&cfg.API.CORS))
	mw.Use(middleware.Logger(runtime.Logger))
	mw.Use(middleware.Metrics())

	return mw.Apply(mux)
}
