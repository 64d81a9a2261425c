package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/JaimeStill/rag-lab/pkg/handlers"
)

// Accounts resolves the current state of a token's subject.
type Accounts interface {
	Get(email string) (users.User, error)
}

// Guard builds route middleware from an issuer and the credential table.
type Guard struct {
	issuer   *Issuer
	accounts Accounts
	logger   *slog.Logger
}

func NewGuard(issuer *Issuer, accounts Accounts, logger *slog.Logger) *Guard {
	return &Guard{
		issuer:   issuer,
		accounts: accounts,
		logger:   logger.With("system", "auth"),
	}
}

// Require rejects requests without a valid bearer token. The account is
// re-read on every request so disabling a user or changing a role takes
// effect before the token expires.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			g.unauthorized(w, ErrUnauthorized)
			return
		}

		claimed, err := g.issuer.Verify(token)
		if err != nil {
			g.unauthorized(w, err)
			return
		}

		u, err := g.accounts.Get(claimed.User)
		if err != nil || u.Disabled {
			g.unauthorized(w, ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), u.Identity())))
	})
}

// RequireAdmin must run after Require.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok {
			g.unauthorized(w, ErrUnauthorized)
			return
		}
		if !id.IsAdmin() {
			handlers.RespondError(w, g.logger, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	handlers.RespondError(w, g.logger, http.StatusUnauthorized, err)
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
