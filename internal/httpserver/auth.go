package httpserver

import (
	"net/http"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/auth"
)

// requireRole wraps next so it only runs once the caller's bearer token
// resolves to an identity holding role, mirroring
// original_source/fimbulwinter.py's protected(role) decorator.
func (s *Server) requireRole(role string, next func(http.ResponseWriter, *http.Request, auth.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ExtractToken(r)
		if !ok {
			writeError(w, &authError{status: http.StatusUnauthorized, msg: "missing bearer token or jwt cookie"})
			return
		}
		id, err := s.introspect.Identify(r.Context(), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := auth.RequireRole(id, role); err != nil {
			writeDomainError(w, err)
			return
		}
		next(w, r, id)
	}
}

type authError struct {
	status int
	msg    string
}

func (e *authError) Error() string { return e.msg }
