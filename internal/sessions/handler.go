package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

// DocumentFinder resolves documents visible to a requester.
type DocumentFinder interface {
	Find(ctx context.Context, id uuid.UUID, requester identity.Identity) (*documents.Document, error)
}

// CreateRequest optionally binds the new session to a document.
type CreateRequest struct {
	DocumentID *string `json:"document_id"`
}

type Handler struct {
	mgr    *Manager
	docs   DocumentFinder
	logger *slog.Logger
}

func NewHandler(mgr *Manager, docs DocumentFinder, logger *slog.Logger) *Handler {
	return &Handler{
		mgr:    mgr,
		docs:   docs,
		logger: logger.With("handler", "sessions"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/sessions",
		Description: "Chat sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	var req CreateRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if req.DocumentID != nil {
		id, err := uuid.Parse(*req.DocumentID)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: document_id: %v", ErrInvalid, err))
			return
		}
		if _, err := h.docs.Find(r.Context(), id, caller); err != nil {
			handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
			return
		}
		bound := id.String()
		req.DocumentID = &bound
	}

	sess, err := h.mgr.Create(caller.User, req.DocumentID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())
	handlers.RespondJSON(w, http.StatusOK, h.mgr.List(caller.User))
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	sess, err := h.mgr.Find(r.PathValue("id"), caller.User)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	ok, err := h.mgr.Delete(r.PathValue("id"), caller.User)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return
	}

	handlers.RespondNoContent(w)
}
