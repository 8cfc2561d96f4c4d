package breaker

import (
	"io"
	"log/slog"
	"os"
)

// newLogger builds a slog.Logger writing to stdout, and also to filePath
// when one is given. Grounded on circuit_breaker/logging.go.
func newLogger(filePath string) *slog.Logger {
	var w io.Writer = os.Stdout
	if filePath != "" {
		if f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = io.MultiWriter(os.Stdout, f)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
