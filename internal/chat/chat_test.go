package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/rag-lab/internal/chat"
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/documents/documentstest"
	"github.com/JaimeStill/rag-lab/internal/extract"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/ingest"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/providers/providerstest"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/internal/vectors/memory"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

const dims = 64

var (
	alice = identity.Identity{User: "alice@example.com", Role: identity.RoleUser}
	bob   = identity.Identity{User: "bob@example.com", Role: identity.RoleUser}
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	primary   *providerstest.Backend
	secondary *providerstest.Backend
	gw        *providers.Gateway
	index     vectors.Index
	sessions  *sessions.Manager
	pipeline  *ingest.Pipeline
	chat      *chat.Orchestrator
}

func newEnv(t *testing.T) *env {
	t.Helper()

	primary := providerstest.New(t, providers.Mistral, dims)
	secondary := providerstest.New(t, providers.Groq, dims)
	gw := providerstest.Gateway(t, primary, secondary)

	index := memory.New(dims, discard())
	docs := documentstest.New(t)
	mgr := sessions.NewManager(sessions.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"), discard()), discard())

	rag := &config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 4}

	return &env{
		primary:   primary,
		secondary: secondary,
		gw:        gw,
		index:     index,
		sessions:  mgr,
		pipeline:  ingest.New(docs.System, index, gw, rag, discard()),
		chat:      chat.New(mgr, index, gw, rag.TopK, discard()),
	}
}

func (e *env) boundSession(t *testing.T, text string) (sessions.Session, string) {
	t.Helper()

	res, err := e.pipeline.Ingest(context.Background(), []byte(text), "facts.txt", alice)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	ns := res.Document.Namespace()
	sess, err := e.sessions.Create(alice.User, &ns)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess, ns
}

func TestComposePrompt(t *testing.T) {
	if got := chat.ComposePrompt("What?", nil); got != "What?" {
		t.Errorf("ComposePrompt() without chunks = %q, want the query", got)
	}

	got := chat.ComposePrompt("What color is the sky?", []string{"The sky is blue.", "Grass is green."})
	if !strings.Contains(got, "The sky is blue.\n\n---\n\nGrass is green.") {
		t.Errorf("chunks not separated: %q", got)
	}
	if !strings.HasSuffix(got, "Question: What color is the sky?\nAnswer:") {
		t.Errorf("question not last: %q", got)
	}
}

func TestAnswer_EndToEnd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.pipeline.Ingest(ctx, []byte("The sky is blue. Grass is green."), "facts.txt", alice)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Document.Kind != extract.KindText {
		t.Errorf("Kind = %s, want text", res.Document.Kind)
	}
	if res.Document.PageCount != nil {
		t.Errorf("PageCount = %d, want nil", *res.Document.PageCount)
	}

	ns := res.Document.Namespace()
	sess, _ := e.sessions.Create(alice.User, &ns)

	answer, err := e.chat.Answer(ctx, sess.ID, "What color is the sky?", alice)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !strings.Contains(e.primary.Echo.LastPrompt(), "sky is blue") {
		t.Errorf("prompt missing retrieved chunk: %q", e.primary.Echo.LastPrompt())
	}
	if !strings.HasPrefix(answer, "mistral: ") || !strings.Contains(answer, "What color is the sky?") {
		t.Errorf("answer = %q", answer)
	}

	got, _ := e.sessions.Get(sess.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != sessions.RoleUser || got.Messages[0].Content != "What color is the sky?" {
		t.Errorf("message[0] = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != sessions.RoleAssistant || got.Messages[1].Content != answer {
		t.Errorf("message[1] = %+v", got.Messages[1])
	}
}

func TestAnswer_UnboundSessionUsesQueryAlone(t *testing.T) {
	e := newEnv(t)
	sess, _ := e.sessions.Create(alice.User, nil)

	if _, err := e.chat.Answer(context.Background(), sess.ID, "Hello there", alice); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := e.primary.Echo.LastPrompt(); got != "Hello there" {
		t.Errorf("prompt = %q, want the query alone", got)
	}
	if n := e.primary.Embedder.Calls.Load(); n != 0 {
		t.Errorf("embed calls = %d, want 0", n)
	}
}

func TestAnswer_EmptyNamespaceUsesQueryAlone(t *testing.T) {
	e := newEnv(t)
	ns := "never-indexed"
	sess, _ := e.sessions.Create(alice.User, &ns)

	if _, err := e.chat.Answer(context.Background(), sess.ID, "Hello there", alice); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := e.primary.Echo.LastPrompt(); got != "Hello there" {
		t.Errorf("prompt = %q, want the query alone", got)
	}
}

func TestAnswer_NotOwner(t *testing.T) {
	e := newEnv(t)
	sess, _ := e.sessions.Create(alice.User, nil)

	tests := []struct {
		name      string
		sessionID string
		requester identity.Identity
	}{
		{"other user", sess.ID, bob},
		{"missing session", "missing", alice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.chat.Answer(context.Background(), tt.sessionID, "hi", tt.requester); !errors.Is(err, sessions.ErrNotFound) {
				t.Errorf("Answer() error = %v, want ErrNotFound", err)
			}
		})
	}

	got, _ := e.sessions.Get(sess.ID)
	if len(got.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(got.Messages))
	}
}

func TestAnswer_GenerationFailureIsRecorded(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *env)
		want  error
	}{
		{"completion unavailable", func(e *env) { e.primary.Echo.Err = providers.ErrProviderUnavailable }, providers.ErrProviderUnavailable},
		{"embedding rate limited", func(e *env) { e.primary.Embedder.Err = providers.ErrRateLimit }, providers.ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			sess, _ := e.boundSession(t, "The sky is blue.")
			tt.setup(e)

			_, err := e.chat.Answer(context.Background(), sess.ID, "What color is the sky?", alice)
			if !errors.Is(err, chat.ErrGeneration) || !errors.Is(err, tt.want) {
				t.Fatalf("Answer() error = %v, want ErrGeneration wrapping %v", err, tt.want)
			}

			got, _ := e.sessions.Get(sess.ID)
			if len(got.Messages) != 2 {
				t.Fatalf("messages = %d, want 2", len(got.Messages))
			}
			if got.Messages[0].Role != sessions.RoleUser {
				t.Errorf("message[0].Role = %s, want user", got.Messages[0].Role)
			}
			if got.Messages[1].Role != sessions.RoleSystem {
				t.Errorf("message[1].Role = %s, want system", got.Messages[1].Role)
			}
		})
	}
}

func TestAnswer_ProviderSwitchLeavesIndex(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess, ns := e.boundSession(t, "The sky is blue. Grass is green.")

	query, _ := e.primary.Embedder.Embed(ctx, "sky")
	before, _ := e.index.Query(ctx, ns, query, 100)
	embedCalls := e.primary.Embedder.Calls.Load()

	if _, err := e.gw.Switch(providers.Groq); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if n := e.primary.Embedder.Calls.Load(); n != embedCalls {
		t.Errorf("switch re-embedded: calls %d -> %d", embedCalls, n)
	}
	if n := e.secondary.Embedder.Calls.Load(); n != 0 {
		t.Errorf("switch embedded with new provider: %d calls", n)
	}

	after, _ := e.index.Query(ctx, ns, query, 100)
	if len(after) != len(before) || after[0].Text != before[0].Text || after[0].Score != before[0].Score {
		t.Errorf("index changed by switch: %+v -> %+v", before, after)
	}

	answer, err := e.chat.Answer(ctx, sess.ID, "What color is the sky?", alice)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.HasPrefix(answer, "groq: ") {
		t.Errorf("answer = %q, want the switched provider", answer)
	}
}

func TestHandler(t *testing.T) {
	e := newEnv(t)
	sess, _ := e.boundSession(t, "The sky is blue.")
	h := chat.NewHandler(e.chat, e.sessions, discard())

	serve := func(caller identity.Identity, path, body string) *httptest.ResponseRecorder {
		mux := http.NewServeMux()
		routes.Register(mux, "", h.Routes())
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req = req.WithContext(identity.WithIdentity(req.Context(), caller))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	w := serve(alice, "/sessions/"+sess.ID+"/chat", `{"query":"What color is the sky?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var resp chat.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer == "" || len(resp.Session.Messages) != 2 || resp.Session.ID != sess.ID {
		t.Errorf("response = %+v", resp)
	}

	tests := []struct {
		name       string
		caller     identity.Identity
		path       string
		body       string
		wantStatus int
	}{
		{"stranger", bob, "/sessions/" + sess.ID + "/chat", `{"query":"hi"}`, http.StatusNotFound},
		{"missing session", alice, "/sessions/missing/chat", `{"query":"hi"}`, http.StatusNotFound},
		{"empty query", alice, "/sessions/" + sess.ID + "/chat", `{"query":"  "}`, http.StatusBadRequest},
		{"malformed", alice, "/sessions/" + sess.ID + "/chat", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(tt.caller, tt.path, tt.body); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	e.primary.Echo.Err = providers.ErrProviderUnavailable
	if w := serve(alice, "/sessions/"+sess.ID+"/chat", `{"query":"hi"}`); w.Code != http.StatusBadGateway {
		t.Errorf("generation failure status = %d, want 502", w.Code)
	}
}
