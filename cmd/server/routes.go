package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/rag-lab/internal/infrastructure"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

// readiness is the /readyz body.
type readiness struct {
	Ready    bool   `json:"ready"`
	Provider string `json:"provider"`
	Sessions int    `json:"sessions"`
}

// buildRouter mounts the health checks and metrics at the root and the API under basePath.
func buildRouter(infra *infrastructure.Infrastructure, apiHandler http.Handler, basePath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /readyz", readinessHandler(infra.Lifecycle, infra))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle(basePath+"/", apiHandler)

	return mux
}

func readinessHandler(lc lifecycle.ReadinessChecker, infra *infrastructure.Infrastructure) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := readiness{
			Ready:    lc.Ready(),
			Provider: string(infra.Providers.Active().Name()),
			Sessions: infra.Sessions.Count(),
		}

		status := http.StatusOK
		if !body.Ready {
			status = http.StatusServiceUnavailable
		}
		handlers.RespondJSON(w, status, body)
	}
}
