// Package api implements the HTTP API for the show-me service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lumokids/showme/internal/buildinfo"
	"github.com/lumokids/showme/internal/resolver"
	"github.com/lumokids/showme/internal/sendlog"
	"github.com/lumokids/showme/internal/session"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address  string
	port     int
	resolver *resolver.Resolver
	sessions session.Store
	audit    *sendlog.Store
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, res *resolver.Resolver, sessions session.Store, logger *slog.Logger) *Server {
	return &Server{
		address:  address,
		port:     port,
		resolver: res,
		sessions: sessions,
		logger:   logger,
	}
}

// SetAuditStore configures the delivery audit store for the sendlog
// endpoint.
func (s *Server) SetAuditStore(as *sendlog.Store) {
	s.audit = as
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/answer", s.handleAnswer)
	mux.HandleFunc("POST /v1/show", s.handleShow)

	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	mux.HandleFunc("GET /v1/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("GET /v1/sendlog", s.handleSendLog)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Lumo Show Me",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// answerRequest is the /v1/answer request body.
type answerRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.resolver.Answer(r.Context(), resolver.Request{
		Identifier: req.UserID,
		Text:       req.Text,
	})

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

// showRequest is the /v1/show request body. identifier is accepted as
// an alias for user_id.
type showRequest struct {
	UserID      string `json:"user_id"`
	Identifier  string `json:"identifier"`
	Text        string `json:"text"`
	ParentPhone string `json:"parent_phone"`
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	var req showRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := req.UserID
	if identifier == "" {
		identifier = req.Identifier
	}

	resp := s.resolver.Resolve(r.Context(), resolver.Request{
		Identifier: identifier,
		Text:       req.Text,
		DeliverTo:  req.ParentPhone,
	})

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("session read failed", "identifier", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "session store error")
		return
	}
	if sess == nil {
		s.errorResponse(w, http.StatusNotFound, "no session for identifier")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleSendLog(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.errorResponse(w, http.StatusNotFound, "send log not enabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		entries []*sendlog.Entry
		err     error
	)
	if id := r.URL.Query().Get("identifier"); id != "" {
		entries, err = s.audit.ForIdentifier(id, limit)
	} else {
		entries, err = s.audit.Recent(limit)
	}
	if err != nil {
		s.logger.Error("sendlog read failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "send log error")
		return
	}
	if entries == nil {
		entries = []*sendlog.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"entries": entries,
		"stats":   s.audit.Stats(),
	}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
