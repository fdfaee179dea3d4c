package config

import (
	"errors"
	"time"

	"sheet_budget/internal/budget"
	"sheet_budget/internal/retry"
	"sheet_budget/internal/sheets"
)

// ResilienceConfig holds the retry policies of the background watch loop.
// Commands run by the user are never retried.
type ResilienceConfig struct {
	Refresh      retry.Config
	LoadSheet    retry.Config
	Notification retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	Refresh: retry.Config{
		MaxRetries: 3,
		BaseDelay:  5 * time.Second,
		MaxDelay:   60 * time.Second,
		Timeout:    30 * time.Second,
		Permanent:  IsPermanent,
	},
	LoadSheet: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
		Permanent:  IsPermanent,
	},
	Notification: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}

// InfiniteResilienceConfig keeps the watch loop alive through long outages
var InfiniteResilienceConfig = ResilienceConfig{
	Refresh: retry.Config{
		BaseDelay:     5 * time.Second,
		MaxDelay:      5 * time.Minute,
		Timeout:       30 * time.Second,
		InfiniteRetry: true,
		Permanent:     IsPermanent,
	},
	LoadSheet: retry.Config{
		BaseDelay:     2 * time.Second,
		MaxDelay:      5 * time.Minute,
		Timeout:       15 * time.Second,
		InfiniteRetry: true,
		Permanent:     IsPermanent,
	},
	Notification: DefaultResilienceConfig.Notification,
}

// IsPermanent reports budget errors that need the user to act before a retry can succeed
func IsPermanent(err error) bool {
	return errors.Is(err, budget.ErrAuthRequired) ||
		errors.Is(err, budget.ErrNoSpreadsheet) ||
		errors.Is(err, budget.ErrSheetDeleted) ||
		errors.Is(err, budget.ErrUnknownSheet) ||
		errors.Is(err, budget.ErrInvalidSheetID) ||
		errors.Is(err, sheets.ErrMalformedSheet)
}
