// Command signup-server serves the agent signup wizard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabrielmiguelok/agentsignup/internal/config"
	"github.com/gabrielmiguelok/agentsignup/internal/server"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOpts, err := cfg.Log.LoggerOptions()
	if err != nil {
		return err
	}
	logger := logging.NewSlogLogger(logOpts...).With(logging.String("version", version))
	logging.SetDefault(logger)

	if cfg.Server.DevMode {
		logger.Warn("dev mode enabled: origin checks are relaxed and the hand-off key is not secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger, server.WithVersion(version))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
