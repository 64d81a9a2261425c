package providers

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

// Handler exposes the gateway to administrators.
type Handler struct {
	gw     *Gateway
	logger *slog.Logger
}

func NewHandler(gw *Gateway, logger *slog.Logger) *Handler {
	return &Handler{
		gw:     gw,
		logger: logger.With("handler", "providers"),
	}
}

// SwitchRequest selects the active provider.
type SwitchRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/providers",
		Description: "Embedding and completion provider selection",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/active", Handler: h.GetActive},
			{Method: "PUT", Pattern: "/active", Handler: h.SetActive},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.gw.List())
}

func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	info := h.gw.Active().Info()
	info.Active = true
	handlers.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	name, err := ParseName(req.Name)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	p, err := h.gw.Switch(name)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	info := p.Info()
	info.Active = true
	handlers.RespondJSON(w, http.StatusOK, info)
}
