package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mathagent/mathagent/internal/app"
	"github.com/mathagent/mathagent/internal/config"
	"github.com/mathagent/mathagent/internal/retrain"
)

// runRetrain runs one retraining pass over the feedback log and prints the
// report.
func runRetrain() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	report, err := a.Retrain.RunExclusive(ctx)
	if errors.Is(err, retrain.ErrAlreadyRunning) {
		return fmt.Errorf("another retraining run is already in progress")
	}
	if err != nil {
		return fmt.Errorf("retraining: %w", err)
	}

	fmt.Printf("Retraining complete: scanned=%d accepted=%d skipped=%d failed=%d\n",
		report.Scanned, report.Accepted, report.Skipped, report.Failed)
	return nil
}
