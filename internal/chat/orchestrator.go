// Package chat answers questions inside a session by retrieving chunks from
// the session's document and completing a prompt built from them.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/pkg/decode"
)

const (
	stageRetrieve = "retrieve"
	stageGenerate = "generate"

	keyQuery     = "query"
	keyNamespace = "namespace"
	keyChunks    = "chunks"
	keyAnswer    = "answer"
)

// Providers yields the provider snapshot used for one query.
type Providers interface {
	Active() *providers.Provider
}

type Orchestrator struct {
	sessions    *sessions.Manager
	index       vectors.Index
	providers   Providers
	topK        int
	checkpoints *checkpoints
	logger      *slog.Logger
}

func New(mgr *sessions.Manager, index vectors.Index, gw Providers, topK int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:    mgr,
		index:       index,
		providers:   gw,
		topK:        topK,
		checkpoints: newCheckpoints(),
		logger:      logger.With("system", "chat"),
	}
}

// Answer records query in the session, runs retrieve -> generate against one
// provider snapshot, and records the outcome. A failure after the question
// is recorded appends a system message and returns ErrGeneration.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, query string, requester identity.Identity) (string, error) {
	sess, err := o.sessions.Find(sessionID, requester.User)
	if err != nil {
		return "", err
	}

	if _, err := o.sessions.Append(sess.ID, query, sessions.RoleUser); err != nil {
		return "", err
	}

	provider := o.providers.Active()

	answer, err := o.run(ctx, provider, sess, query)
	if err != nil {
		note := fmt.Sprintf("Generation failed (%s): %v", provider.Name(), err)
		if _, appendErr := o.sessions.Append(sess.ID, note, sessions.RoleSystem); appendErr != nil {
			o.logger.Error("failed to record generation failure", "session_id", sess.ID, "error", appendErr)
		}
		o.logger.Warn("generation failed", "session_id", sess.ID, "provider", provider.Name(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	if _, err := o.sessions.Append(sess.ID, answer, sessions.RoleAssistant); err != nil {
		return "", err
	}

	o.logger.Info("query answered", "session_id", sess.ID, "provider", provider.Name())
	return answer, nil
}

func (o *Orchestrator) run(ctx context.Context, provider *providers.Provider, sess sessions.Session, query string) (string, error) {
	runID := uuid.NewString()
	defer o.checkpoints.Delete(runID)

	cfg := config.DefaultGraphConfig("query")
	cfg.Checkpoint.Interval = 1

	graph, err := state.NewGraphWithDeps(cfg, newStageObserver(o.logger.With("session_id", sess.ID)), o.checkpoints)
	if err != nil {
		return "", fmt.Errorf("build pipeline: %w", err)
	}

	// Node errors are kept here so callers can match the provider or index sentinel.
	var cause error
	fail := func(s state.State, err error) (state.State, error) {
		cause = err
		return s, err
	}

	retrieve := state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		raw, ok := s.Get(keyNamespace)
		if !ok {
			return s.Set(keyChunks, []string{}), nil
		}
		ns, err := decode.Value[string](raw)
		if err != nil {
			return fail(s, fmt.Errorf("namespace: %w", err))
		}
		q, err := stateString(s, keyQuery)
		if err != nil {
			return fail(s, err)
		}

		vec, err := provider.Embed(ctx, q)
		if err != nil {
			return fail(s, fmt.Errorf("embed query: %w", err))
		}

		matches, err := o.index.Query(ctx, ns, vec, o.topK)
		if err != nil {
			return fail(s, fmt.Errorf("query index: %w", err))
		}

		chunks := make([]string, len(matches))
		for i, m := range matches {
			chunks[i] = m.Text
		}
		return s.Set(keyChunks, chunks), nil
	})

	generate := state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		q, err := stateString(s, keyQuery)
		if err != nil {
			return fail(s, err)
		}
		var chunks []string
		if v, ok := s.Get(keyChunks); ok {
			if chunks, err = decode.Value[[]string](v); err != nil {
				return fail(s, fmt.Errorf("chunks: %w", err))
			}
		}

		answer, err := provider.Complete(ctx, ComposePrompt(q, chunks))
		if err != nil {
			return fail(s, fmt.Errorf("complete: %w", err))
		}
		return s.Set(keyAnswer, answer), nil
	})

	for name, node := range map[string]state.StateNode{stageRetrieve: retrieve, stageGenerate: generate} {
		if err := graph.AddNode(name, node); err != nil {
			return "", fmt.Errorf("build pipeline: %w", err)
		}
	}
	if err := graph.AddEdge(stageRetrieve, stageGenerate, nil); err != nil {
		return "", fmt.Errorf("build pipeline: %w", err)
	}
	if err := graph.SetEntryPoint(stageRetrieve); err != nil {
		return "", fmt.Errorf("build pipeline: %w", err)
	}
	if err := graph.SetExitPoint(stageGenerate); err != nil {
		return "", fmt.Errorf("build pipeline: %w", err)
	}

	initial := state.New(nil).Set(keyQuery, query)
	if sess.DocumentID != nil {
		initial = initial.Set(keyNamespace, *sess.DocumentID)
	}
	initial.RunID = runID

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		if cause != nil {
			return "", cause
		}
		return "", err
	}

	return stateString(final, keyAnswer)
}

func stateString(s state.State, key string) (string, error) {
	v, ok := s.Get(key)
	if !ok {
		return "", fmt.Errorf("pipeline state missing %s", key)
	}
	return decode.Value[string](v)
}
