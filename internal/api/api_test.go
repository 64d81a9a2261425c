package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/JaimeStill/rag-lab/internal/api"
	"github.com/JaimeStill/rag-lab/internal/auth"
	"github.com/JaimeStill/rag-lab/internal/chat"
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/infrastructure"
	"github.com/JaimeStill/rag-lab/internal/ingest"
	"github.com/JaimeStill/rag-lab/internal/migrations"
	"github.com/JaimeStill/rag-lab/internal/providers/providerstest"
	"github.com/JaimeStill/rag-lab/internal/sessions"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/JaimeStill/rag-lab/internal/vectors/memory"
	"github.com/JaimeStill/rag-lab/pkg/database"
	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

const (
	dims          = 64
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		API:  config.APIConfig{BasePath: "/api"},
		RAG:  config.RAGConfig{ChunkSize: 40, ChunkOverlap: 10, TopK: 4},
		Auth: config.AuthConfig{Secret: "test-secret", Issuer: "rag-lab", TokenTTL: "30m", AllowRegistration: true},
		Database: database.Config{
			Driver: database.DriverSQLite,
			Path:   filepath.Join(dir, "rag.db"),
		},
		Storage: storage.Config{BasePath: filepath.Join(dir, "blobs")},
	}
	if err := cfg.Database.Finalize(nil); err != nil {
		t.Fatalf("database config: %v", err)
	}
	if err := cfg.Storage.Finalize(nil); err != nil {
		t.Fatalf("storage config: %v", err)
	}

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Connection().Close() })
	if err := migrations.Up(db.Connection(), db.Driver()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	accounts, err := users.New(&config.UsersConfig{
		Path:          filepath.Join(dir, "users.json"),
		BcryptCost:    bcrypt.MinCost,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	}, logger)
	if err != nil {
		t.Fatalf("users.New() error = %v", err)
	}

	infra := &infrastructure.Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Vectors:   memory.New(dims, logger),
		Providers: providerstest.Gateway(t, providerstest.New(t, "mistral", dims)),
		Users:     accounts,
		Sessions:  sessions.NewManager(sessions.NewFileStore(filepath.Join(dir, "sessions.json"), logger), logger),
	}

	srv := httptest.NewServer(api.NewHandler(cfg, infra))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, req *http.Request, token string, out any) int {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", req.Method, req.URL.Path, err)
		}
	}
	return resp.StatusCode
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	var tok auth.Token
	req := jsonRequest(t, "POST", srv.URL+"/api/auth/token", map[string]string{"email": email, "password": password})
	if status := do(t, req, "", &tok); status != http.StatusOK {
		t.Fatalf("login %s status = %d, want %d", email, status, http.StatusOK)
	}
	return tok.AccessToken
}

func upload(t *testing.T, srv *httptest.Server, token, filename, content string) (int, ingest.Result) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req, err := http.NewRequest("POST", srv.URL+"/api/documents", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res ingest.Result
	status := do(t, req, token, &res)
	return status, res
}

func TestAPI_DocumentChatFlow(t *testing.T) {
	srv := newServer(t)

	register := jsonRequest(t, "POST", srv.URL+"/api/auth/register", map[string]string{
		"email": "alice@example.com", "password": "alice-secret",
	})
	if status := do(t, register, "", nil); status != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", status, http.StatusCreated)
	}
	token := login(t, srv, "alice@example.com", "alice-secret")

	status, res := upload(t, srv, token, "sky.txt", "The sky is blue. Grass is green. Night is dark.")
	if status != http.StatusCreated {
		t.Fatalf("upload status = %d, want %d", status, http.StatusCreated)
	}
	if res.Chunks == 0 {
		t.Fatal("upload indexed no chunks")
	}

	docID := res.Document.ID.String()
	var session sessions.Session
	create := jsonRequest(t, "POST", srv.URL+"/api/sessions", map[string]string{"document_id": docID})
	if status := do(t, create, token, &session); status != http.StatusCreated {
		t.Fatalf("create session status = %d, want %d", status, http.StatusCreated)
	}

	var answer chat.QueryResponse
	query := jsonRequest(t, "POST", srv.URL+"/api/sessions/"+session.ID+"/chat", map[string]string{"query": "What color is the sky?"})
	if status := do(t, query, token, &answer); status != http.StatusOK {
		t.Fatalf("chat status = %d, want %d", status, http.StatusOK)
	}
	if !strings.HasPrefix(answer.Answer, "mistral: ") {
		t.Errorf("answer = %q, want mistral prefix", answer.Answer)
	}
	if !strings.Contains(answer.Answer, "sky is blue") {
		t.Errorf("answer = %q, want retrieved context", answer.Answer)
	}
	if got := len(answer.Session.Messages); got != 2 {
		t.Errorf("session messages = %d, want 2", got)
	}
}

func TestAPI_Authorization(t *testing.T) {
	srv := newServer(t)

	register := jsonRequest(t, "POST", srv.URL+"/api/auth/register", map[string]string{
		"email": "bob@example.com", "password": "bob-secret",
	})
	if status := do(t, register, "", nil); status != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", status, http.StatusCreated)
	}
	userToken := login(t, srv, "bob@example.com", "bob-secret")
	adminToken := login(t, srv, adminEmail, adminPassword)

	get := func(path string) *http.Request {
		req, err := http.NewRequest("GET", srv.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		return req
	}

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"sessions without token", "/api/sessions", "", http.StatusUnauthorized},
		{"sessions as user", "/api/sessions", userToken, http.StatusOK},
		{"documents as user", "/api/documents", userToken, http.StatusOK},
		{"providers as user", "/api/providers", userToken, http.StatusForbidden},
		{"providers as admin", "/api/providers", adminToken, http.StatusOK},
		{"users as user", "/api/users", userToken, http.StatusForbidden},
		{"users as admin", "/api/users", adminToken, http.StatusOK},
		{"me trailing slash", "/api/auth/me/", userToken, http.StatusOK},
		{"garbage token", "/api/auth/me", "not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := do(t, get(tt.path), tt.token, nil); status != tt.status {
				t.Errorf("GET %s status = %d, want %d", tt.path, status, tt.status)
			}
		})
	}
}
