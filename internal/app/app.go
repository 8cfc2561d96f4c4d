package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/adapter/housebamzy"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/auth"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/breaker"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/clock"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/config"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/events"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/httpserver"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/persistence"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/registry"
)

// Application wires configuration, logging, routing, the event outbox, and
// graceful shutdown handling for the match engine process.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	logFile   *os.File
	server    *http.Server
	publisher events.Publisher
	registry  *registry.Registry
	store     persistence.Store
}

// New prepares a fully wired Application using the supplied configuration.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := newLogger(lf)

	var publisher events.Publisher = events.NoOp{}
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	reg := registry.New()
	var store persistence.Store = persistence.NoOp{}
	snapshots, err := store.LoadMatches()
	if err != nil {
		return nil, fmt.Errorf("load persisted matches: %w", err)
	}
	for _, snap := range snapshots {
		m, err := matchcore.New(snap, housebamzy.New(), clock.Real{})
		if err != nil {
			logger.Warn("skip_invalid_persisted_match", slog.String("match_id", snap.MatchID), slog.Any("err", err))
			continue
		}
		if err := reg.Add(m); err != nil {
			logger.Warn("skip_duplicate_persisted_match", slog.String("match_id", snap.MatchID))
		}
	}

	introspector := auth.New(cfg.AuthServiceURL, breaker.DefaultConfig())

	srv := httpserver.New(reg, introspector, publisher, logger)
	router := srv.NewRouter()
	handler := httpserver.WrapWithCORS(cfg.AllowedOrigins, httpserver.WrapWithLogging(logger, router))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		logFile:   lf,
		server:    httpSrv,
		publisher: publisher,
		registry:  reg,
		store:     store,
	}, nil
}

// Logger exposes the configured slog logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until ctx is cancelled or the HTTP server terminates.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		err := a.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error("server_shutdown_failed", slog.Any("err", err))
				return fmt.Errorf("shutdown: %w", err)
			}
		}
		if err := <-errCh; err != nil {
			a.logger.Error("server_shutdown_error", slog.Any("err", err))
			return err
		}
		a.logger.Info("shutdown_complete")
		return nil
	case err := <-errCh:
		if err != nil {
			a.logger.Error("http_server_error", slog.Any("err", err))
			return err
		}
		a.logger.Info("server_closed")
		return nil
	}
}

// Close persists current match state, flushes the event outbox, and closes
// resources owned by the Application.
func (a *Application) Close() error {
	if a.store != nil && a.registry != nil {
		matches := a.registry.All()
		snapshots := make([]matchcore.Config, 0, len(matches))
		for _, m := range matches {
			snapshots = append(snapshots, m.Snapshot())
		}
		if err := a.store.PersistMatches(snapshots); err != nil {
			a.logger.Warn("persist_matches_failed", slog.Any("err", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher_close_failed", slog.Any("err", err))
		}
	}
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
