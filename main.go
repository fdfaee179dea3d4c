package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sheet_budget/internal/app"

	"github.com/rs/zerolog/log"
)

func main() {
	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	err := newRootCommand(c).ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("Failed to close cache")
	}
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}
