package api

import (
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/auth"
	"github.com/JaimeStill/rag-lab/internal/chat"
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/ingest"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	runtime *Runtime,
	domain *Domain,
	cfg *config.Config,
) {
	guard := domain.Guard
	authenticated := []func(http.Handler) http.Handler{guard.Require}
	admin := []func(http.Handler) http.Handler{guard.Require, guard.RequireAdmin}

	authHandler := auth.NewHandler(runtime.Users, domain.Issuer, guard, runtime.Auth.AllowRegistration, runtime.Logger)
	documentsHandler := documents.NewHandler(domain.Documents, runtime.Logger)
	ingestHandler := ingest.NewHandler(domain.Pipeline, runtime.MaxUploadSize, guard.RequireAdmin, runtime.Logger)
	sessionsHandler := sessions.NewHandler(runtime.Sessions, domain.Documents, runtime.Logger)
	chatHandler := chat.NewHandler(domain.Orchestrator, runtime.Sessions, runtime.Logger)
	providersHandler := providers.NewHandler(runtime.Providers, runtime.Logger)
	usersHandler := users.NewHandler(runtime.Users, runtime.Logger)

	protect := func(g routes.Group, mw []func(http.Handler) http.Handler) routes.Group {
		g.Middleware = append(append([]func(http.Handler) http.Handler{}, mw...), g.Middleware...)
		return g
	}

	routes.Register(
		mux,
		cfg.API.BasePath,
		authHandler.Routes(),
		protect(documentsHandler.Routes(), authenticated),
		protect(ingestHandler.Routes(), authenticated),
		protect(sessionsHandler.Routes(), authenticated),
		protect(chatHandler.Routes(), authenticated),
		protect(providersHandler.Routes(), admin),
		protect(usersHandler.Routes(), admin),
	)
}
