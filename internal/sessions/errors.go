package sessions

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is also returned for sessions owned by someone else.
	ErrNotFound = errors.New("session not found")
	ErrInvalid  = errors.New("invalid session request")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
