package app

import (
	"context"
	"errors"
	"time"

	"sheet_budget/internal/budget"
	"sheet_budget/internal/config"
	"sheet_budget/internal/reconcile"
	"sheet_budget/internal/retry"

	"github.com/rs/zerolog/log"
)

type watchService interface {
	Refresh(ctx context.Context) (*budget.RefreshResult, error)
	LoadSheet(ctx context.Context, sheetID string) (*budget.Budget, error)
}

type notifier interface {
	NotifyDrift(ctx context.Context, changes reconcile.Changes) error
	NotifyOverspent(ctx context.Context, sheetName string, leftover int) error
}

// Watcher periodically reconciles the sheet list and reloads every active budget,
// notifying about drift and budgets that go over.
type Watcher struct {
	service    watchService
	notifier   notifier
	resilience config.ResilienceConfig

	// sheets already reported as overspent, so each is reported once until it recovers
	overspent map[string]bool
}

func NewWatcher(service watchService, n notifier, resilience config.ResilienceConfig) *Watcher {
	return &Watcher{
		service:    service,
		notifier:   n,
		resilience: resilience,
		overspent:  make(map[string]bool),
	}
}

// Run checks immediately and then on every tick until ctx is done
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	log.Info().Dur("interval", interval).Msg("Starting budget watch. Running immediately and then on every tick...")

	w.runAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping budget watch")
			return nil
		case <-ticker.C:
			w.runAndLog(ctx)
		}
	}
}

func (w *Watcher) runAndLog(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, budget.ErrAuthRequired) {
			log.Error().Msg("Google sign-in required, run the login command")
			return
		}
		log.Error().Err(err).Msg("Watch cycle failed")
	}
}

// RunOnce performs a single watch cycle
func (w *Watcher) RunOnce(ctx context.Context) error {
	log.Debug().Msg("Starting watch cycle")

	result, err := retry.WithRetry(ctx, w.resilience.Refresh, w.service.Refresh)
	if err != nil {
		return err
	}

	if !result.Changes.Empty() {
		if err := w.notifier.NotifyDrift(ctx, result.Changes); err != nil {
			log.Warn().Err(err).Msg("Failed to send drift notification")
		}
	}

	loaded := 0
	for _, entry := range result.Entries {
		if entry.Archived {
			continue
		}

		sheetID := entry.SheetID
		b, err := retry.WithRetry(ctx, w.resilience.LoadSheet, func(ctx context.Context) (*budget.Budget, error) {
			return w.service.LoadSheet(ctx, sheetID)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("sheet", entry.SheetName).Msg("Failed to load budget")
			continue
		}
		loaded++
		w.checkOverspent(ctx, b)
	}

	log.Debug().
		Int("sheets", len(result.Entries)).
		Int("loaded", loaded).
		Msg("Finished watch cycle")
	return nil
}

func (w *Watcher) checkOverspent(ctx context.Context, b *budget.Budget) {
	leftover := b.Sheet.Leftover()
	over := leftover < 0

	if over && !w.overspent[b.SheetID] {
		log.Info().Str("sheet", b.SheetName).Int("leftover", leftover).Msg("Budget is overspent")
		if err := w.notifier.NotifyOverspent(ctx, b.SheetName, leftover); err != nil {
			log.Warn().Err(err).Msg("Failed to send overspent notification")
		}
	}
	w.overspent[b.SheetID] = over
}
