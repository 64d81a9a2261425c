package chat

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

type QueryRequest struct {
	Query string `json:"query"`
}

type QueryResponse struct {
	Answer  string           `json:"answer"`
	Session sessions.Session `json:"session"`
}

type Handler struct {
	orchestrator *Orchestrator
	sessions     *sessions.Manager
	logger       *slog.Logger
}

func NewHandler(o *Orchestrator, mgr *sessions.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: o,
		sessions:     mgr,
		logger:       logger.With("handler", "chat"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/sessions/{id}/chat",
		Description: "Retrieval-augmented question answering",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Chat},
		},
	}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: query is required", sessions.ErrInvalid))
		return
	}

	caller, _ := identity.FromContext(r.Context())
	id := r.PathValue("id")

	answer, err := h.orchestrator.Answer(r.Context(), id, req.Query, caller)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	sess, err := h.sessions.Find(id, caller.User)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, QueryResponse{Answer: answer, Session: sess})
}
