package api

import (
	"github.com/JaimeStill/rag-lab/internal/auth"
	"github.com/JaimeStill/rag-lab/internal/chat"
	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/ingest"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents    documents.System
	Pipeline     *ingest.Pipeline
	Orchestrator *chat.Orchestrator
	Issuer       *auth.Issuer
	Guard        *auth.Guard
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docs := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.DeletedBlobs,
		runtime.Logger,
	)

	pipeline := ingest.New(
		docs,
		runtime.Vectors,
		runtime.Providers,
		&runtime.RAG,
		runtime.Logger,
	)

	orchestrator := chat.New(
		runtime.Sessions,
		runtime.Vectors,
		runtime.Providers,
		runtime.RAG.TopK,
		runtime.Logger,
	)

	issuer := auth.NewIssuer(&runtime.Auth)

	return &Domain{
		Documents:    docs,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Issuer:       issuer,
		Guard:        auth.NewGuard(issuer, runtime.Users, runtime.Logger),
	}
}
