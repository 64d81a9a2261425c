package auth

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

// Credentials accepts "email" or the OAuth2 password-form "username".
type Credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) login() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Username
}

type Handler struct {
	users        users.System
	issuer       *Issuer
	guard        *Guard
	registration bool
	logger       *slog.Logger
}

func NewHandler(sys users.System, issuer *Issuer, guard *Guard, registration bool, logger *slog.Logger) *Handler {
	return &Handler{
		users:        sys,
		issuer:       issuer,
		guard:        guard,
		registration: registration,
		logger:       logger.With("handler", "auth"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/auth",
		Description: "Token issuance and account registration",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/token", Handler: h.Token},
			{Method: "POST", Pattern: "/register", Handler: h.Register},
		},
		Children: []routes.Group{{
			Middleware: []func(http.Handler) http.Handler{h.guard.Require},
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/me", Handler: h.Me},
			},
		}},
	}
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	u, err := h.users.Authenticate(creds.login(), creds.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	tok, err := h.issuer.Issue(u)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tok)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.registration {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrRegistrationClosed)
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	u, err := h.users.Create(creds.login(), creds.Password, identity.RoleUser)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, u.Info())
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	handlers.RespondJSON(w, http.StatusOK, id)
}

func readCredentials(r *http.Request) (Credentials, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return Credentials{}, fmt.Errorf("parse form: %w", err)
		}
		return Credentials{
			Email:    r.PostFormValue("email"),
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}, nil
	}

	var c Credentials
	if err := handlers.DecodeJSON(r, &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}
