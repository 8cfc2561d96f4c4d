// Package httpserver implements the HTTP surface described in spec.md §6:
// routing via gorilla/mux, CORS and access-log middleware via
// gorilla/handlers, and role-gated handlers backed by internal/auth and
// internal/registry.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/auth"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/events"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/registry"
)

// Server bundles everything a handler needs to serve a request.
type Server struct {
	reg        *registry.Registry
	introspect *auth.Introspector
	publisher  events.Publisher
	logger     *slog.Logger
}

// New constructs a Server.
func New(reg *registry.Registry, introspect *auth.Introspector, publisher events.Publisher, logger *slog.Logger) *Server {
	return &Server{reg: reg, introspect: introspect, publisher: publisher, logger: logger}
}

// NewRouter builds the full route table for spec.md §6.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")

	r.HandleFunc("/matches", s.listMatches).Methods("GET")
	r.HandleFunc("/matches", s.requireRole("admin", s.clearMatches)).Methods("DELETE")

	r.HandleFunc("/matches/{id}", s.getMatch).Methods("GET")
	r.HandleFunc("/matches/{id}", s.requireRole("admin", s.createMatch)).Methods("PUT")
	r.HandleFunc("/matches/{id}", s.requireRole("admin", s.patchMatch)).Methods("PATCH")
	r.HandleFunc("/matches/{id}", s.requireRole("admin", s.deleteMatch)).Methods("DELETE")
	r.HandleFunc("/matches/{id}", s.requireRole("user", s.submitAnswer)).Methods("POST")

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
