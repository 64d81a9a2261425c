package auth

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/users"
)

var (
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("admin access required")
	ErrRegistrationClosed = errors.New("registration is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrRegistrationClosed):
		return http.StatusForbidden
	default:
		return users.MapHTTPStatus(err)
	}
}
