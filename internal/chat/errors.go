package chat

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/sessions"
)

// ErrGeneration is returned when retrieval or completion fails after the
// question was recorded. The transcript carries a system message describing it.
var ErrGeneration = errors.New("answer generation failed")

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrGeneration):
		return http.StatusBadGateway
	default:
		return sessions.MapHTTPStatus(err)
	}
}
