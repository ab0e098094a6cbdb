// Command signup-cli runs the agent signup wizard in a terminal against the
// configured account store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabrielmiguelok/agentsignup/internal/cli"
	"github.com/gabrielmiguelok/agentsignup/internal/config"
	"github.com/gabrielmiguelok/agentsignup/pkg/accounts"
	"github.com/gabrielmiguelok/agentsignup/pkg/handoff"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrAborted) {
			fmt.Fprintln(os.Stderr, "Signup cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logOpts, err := cfg.Log.LoggerOptions()
	if err != nil {
		return err
	}
	logger := logging.NewSlogLogger(append(logOpts, logging.WithOutput(os.Stderr))...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creator, closeStore, err := openCreator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctrl := registration.New(creator, registration.WithLogger(logger))
	issuer := handoff.NewIssuer(cfg.Handoff.SigningKey, cfg.Handoff.TTL, cfg.Handoff.DashboardPath)

	wizard := cli.NewWizard(cli.NewSurveyDriver(os.Stdout), ctrl, cli.WithIssuer(issuer))
	_, err = wizard.Run(ctx)
	return err
}

func openCreator(ctx context.Context, cfg config.Config) (registration.AccountCreator, func(), error) {
	if cfg.Submission.Mode != config.ModePostgres {
		return accounts.NewSimulated(accounts.WithDelay(cfg.Submission.Delay)), func() {}, nil
	}

	db, err := accounts.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	store := accounts.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return accounts.NewTraced(store, nil), func() { db.Close() }, nil
}
