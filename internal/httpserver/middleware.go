package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/handlers"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// access logging. Grounded on
// services/gamification/internal/http/middleware.go's responseWriter.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WrapWithLogging logs method, path, status, and duration for every request.
func WrapWithLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// isAllowedOrigin reports whether origin's hostname is in allowed, matching
// original_source/fimbulwinter.py:is_allowed_origin (hostname-only check,
// scheme and port ignored).
func isAllowedOrigin(origin string, allowed []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(u.Hostname(), a) {
			return true
		}
	}
	return false
}

// WrapWithCORS echoes Access-Control-Allow-Origin only for allow-listed
// origin hostnames, matching original_source/ragnarok.py's after_request
// CORS handling, implemented via gorilla/handlers.CORS with a custom
// origin validator.
func WrapWithCORS(allowedOrigins []string, next http.Handler) http.Handler {
	validator := handlers.AllowedOriginValidator(func(origin string) bool {
		return isAllowedOrigin(origin, allowedOrigins)
	})
	cors := handlers.CORS(
		validator,
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return cors(next)
}
