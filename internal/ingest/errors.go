package ingest

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rag-lab/internal/chunker"
	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/vectors"
)

// ErrIndexing wraps embedding and upsert failures after the document was stored.
var ErrIndexing = errors.New("document indexing failed")

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, providers.ErrProviderMismatch), errors.Is(err, vectors.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, providers.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, providers.ErrProviderUnavailable), errors.Is(err, vectors.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, chunker.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, ErrIndexing):
		return http.StatusBadGateway
	default:
		return documents.MapHTTPStatus(err)
	}
}
