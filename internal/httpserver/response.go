package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders a plain {status, msg} style error not originating
// from the domain error type (e.g. a missing bearer token).
func writeError(w http.ResponseWriter, e *authError) {
	writeJSON(w, e.status, errObj{Error: e.msg})
}

// writeDomainError maps a matchcore.Error to its HTTP status and body.
func writeDomainError(w http.ResponseWriter, err error) {
	if derr, ok := err.(*matchcore.Error); ok {
		writeJSON(w, derr.HTTPStatus(), errObj{Error: derr.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errObj{Error: err.Error()})
}
