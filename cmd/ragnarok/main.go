package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/app"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "application init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "application close failed: %v\n", err)
		}
	}()

	application.Logger().Info("ragnarok_starting", slog.String("listen", cfg.ListenAddress))

	if err := application.Run(ctx); err != nil {
		application.Logger().Error("ragnarok_terminated", slog.Any("err", err))
		os.Exit(1)
	}
}
