// Command server boots the board-game server: loads configuration, runs
// pending migrations, connects to Postgres, wires the session router, game
// engine, and dispatcher, and serves WebSocket connections until signaled
// to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/edwardwawrzynek/chess/internal/config"
	"github.com/edwardwawrzynek/chess/internal/dispatch"
	"github.com/edwardwawrzynek/chess/internal/game"
	gamechess "github.com/edwardwawrzynek/chess/internal/game/chess"
	"github.com/edwardwawrzynek/chess/internal/session"
	"github.com/edwardwawrzynek/chess/internal/store"
	"github.com/edwardwawrzynek/chess/internal/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pg.Close()

	router := session.New()
	registry := game.NewRegistry()
	gamechess.Register(registry)

	engine := game.NewEngine(ctx, pg, router, registry)
	dispatcher := dispatch.New(pg, router, engine)
	srv := transport.NewServer(cfg.ServerURL, router, dispatcher)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
