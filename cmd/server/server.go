package main

import (
	"time"

	"github.com/JaimeStill/rag-lab/internal/api"
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/infrastructure"
	"github.com/JaimeStill/rag-lab/internal/server"
)

// Server coordinates the lifecycle of all subsystems.
type Server struct {
	infra *infrastructure.Infrastructure
	http  server.System
}

// NewServer creates and initializes the service with all subsystems.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, api.NewHandler(cfg, infra), cfg.API.BasePath)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"vectors", cfg.Vectors.Backend,
		"provider", infra.Providers.Active().Info().Name,
	)

	return &Server{
		infra: infra,
		http:  server.New(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start begins all subsystems and returns when they are ready.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready",
			"addr", s.http.Addr(),
			"provider", s.infra.Providers.Active().Name(),
			"sessions", s.infra.Sessions.Count(),
		)
	}()

	return nil
}

// Shutdown stops accepting requests, drains in-flight ones and releases
// every subsystem within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}
	s.infra.Logger.Info("server stopped gracefully")
	return nil
}
