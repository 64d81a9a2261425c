package handlers_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/rag-lab/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondJSON(w, http.StatusCreated, map[string]string{"id": "abc"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "abc" {
		t.Errorf("id = %q, want abc", body["id"])
	}
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondError(w, slog.Default(), http.StatusNotFound, errors.New("session not found"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "session not found" {
		t.Errorf("error = %q, want %q", body["error"], "session not found")
	}
}

func TestRespondNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondNoContent(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	type request struct {
		Query string `json:"query"`
	}

	tests := []struct {
		name     string
		body     string
		optional bool
		want     string
		wantErr  error
		fails    bool
	}{
		{"valid", `{"query":"What color is the sky?"}`, false, "What color is the sky?", nil, false},
		{"empty required", "", false, "", handlers.ErrEmptyBody, true},
		{"empty optional", "", true, "", nil, false},
		{"malformed", `{"query":`, false, "", nil, true},
		{"malformed optional", `{"query":`, true, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var req request
			var err error
			if tt.optional {
				err = handlers.DecodeOptionalJSON(r, &req)
			} else {
				err = handlers.DecodeJSON(r, &req)
			}

			if (err != nil) != tt.fails {
				t.Fatalf("error = %v, want failure %v", err, tt.fails)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if req.Query != tt.want {
				t.Errorf("Query = %q, want %q", req.Query, tt.want)
			}
		})
	}
}
