package ingest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

// Handler serves the document endpoints that change the vector index.
type Handler struct {
	pipeline      *Pipeline
	maxUploadSize int64
	adminOnly     func(http.Handler) http.Handler
	logger        *slog.Logger
}

// NewHandler mounts reindex behind adminOnly.
func NewHandler(pipeline *Pipeline, maxUploadSize int64, adminOnly func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline:      pipeline,
		maxUploadSize: maxUploadSize,
		adminOnly:     adminOnly,
		logger:        logger.With("handler", "ingest"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/documents",
		Description: "Document upload and indexing",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
		Children: []routes.Group{{
			Middleware: []func(http.Handler) http.Handler{h.adminOnly},
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/{id}/reindex", Handler: h.Reindex},
			},
		}},
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, documents.ErrFileTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, documents.ErrFileTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	caller, _ := identity.FromContext(r.Context())

	result, err := h.pipeline.Ingest(r.Context(), data, header.Filename, caller)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	caller, _ := identity.FromContext(r.Context())

	if _, err := h.pipeline.Delete(r.Context(), id, caller); err != nil && !errors.Is(err, ErrIndexing) {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondNoContent(w)
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	caller, _ := identity.FromContext(r.Context())

	result, err := h.pipeline.Reindex(r.Context(), id, caller)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
