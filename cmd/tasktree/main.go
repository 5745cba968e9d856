// Package main is the entry point for the tasktree CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tasktree/internal/backend/googletasks"
	"tasktree/internal/backend/rest"
	"tasktree/internal/cli"
	"tasktree/internal/commands"
	"tasktree/internal/config"
	"tasktree/internal/logging"
	"tasktree/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// newService creates the store client of the configured backend.
func newService(ctx context.Context, cfg *config.Config) (service.Service, error) {
	log := logging.New(os.Stderr, cfg.Debug)

	switch cfg.Backend {
	case config.BackendGoogle:
		return googletasks.New(ctx, cfg, googletasks.WithLogger(log))
	case config.BackendREST:
		if cfg.Token == "" && cfg.Session() == "" {
			return nil, fmt.Errorf("%w: not logged in (run: tasktree login)", service.ErrUnauthorized)
		}
		return rest.New(cfg, rest.WithLogger(log))
	default:
		return nil, fmt.Errorf("%w: unknown backend: %s", config.ErrInvalid, cfg.Backend)
	}
}
