package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumokids/showme/internal/resolver"
	"github.com/lumokids/showme/internal/session"
)

type nopSender struct{}

func (nopSender) Send(ctx context.Context, to, body string) error { return nil }
func (nopSender) Name() string                                    { return "nop" }

func newTestServer(t *testing.T) (*Server, *session.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := session.NewMemoryStore()
	res := resolver.New(resolver.DefaultOptions(), store, nopSender{}, nil, logger)
	return NewServer("127.0.0.1", 0, res, store, logger), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["name"] == "" || body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestShow_Flow(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	// Seed a topic through a non-show utterance.
	rec := doJSON(t, h, http.MethodPost, "/v1/show",
		`{"user_id":"kid-1","text":"Tell me about volcanoes"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/show",
		`{"user_id":"kid-1","text":"show me!","parent_phone":"+15559998888"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp resolver.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Spoken, "volcanoes") {
		t.Errorf("Spoken = %q", resp.Spoken)
	}
	if resp.ImageURL == "" || resp.VideoURL == "" {
		t.Errorf("missing links: %+v", resp)
	}
	if !resp.Delivered {
		t.Error("Delivered = false")
	}
}

func TestShow_IdentifierAlias(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/show",
		`{"identifier":"+15550000001","text":"I like dinosaurs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	s, _ := store.Get(context.Background(), "+15550000001")
	if s == nil || s.Topic != "I like dinosaurs" {
		t.Errorf("session = %+v", s)
	}
}

func TestShow_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/show", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestAnswer_NoGeneratorStillResponds(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/answer",
		`{"user_id":"kid-1","text":"why is the sky blue?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp resolver.AnswerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Spoken == "" {
		t.Error("Spoken empty; failures must still speak")
	}
}

func TestSessionGet(t *testing.T) {
	srv, store := newTestServer(t)
	store.Put(context.Background(), "kid-1", &session.Session{Topic: "whales"})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/sessions/kid-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var s session.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Topic != "whales" {
		t.Errorf("Topic = %q", s.Topic)
	}
}

func TestSessionGet_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/sessions/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSendLog_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/sendlog", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
