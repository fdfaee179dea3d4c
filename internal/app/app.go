package app

import (
	"context"
	"fmt"

	"sheet_budget/internal/auth"
	"sheet_budget/internal/budget"
	"sheet_budget/internal/cache"
	"sheet_budget/internal/config"
	"sheet_budget/internal/notifications"
	"sheet_budget/internal/sheets"

	"github.com/rs/zerolog/log"
)

// App holds the long-lived pieces shared by every command
type App struct {
	Config   Config
	Auth     *auth.Authenticator
	Cache    *cache.Cache
	Notifier *notifications.Client
}

// Open prepares credentials, the local cache and the notification client. The Sheets
// client is built lazily by Service since it needs a signed-in user.
func Open(cfg Config) (*App, error) {
	log.Debug().Msg("Initializing clients")

	c, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	a := &App{
		Config: cfg,
		Auth: auth.New(auth.Config{
			CredentialsFile: cfg.CredentialsFile,
			ClientFile:      cfg.OAuthClientFile,
			TokenFile:       cfg.OAuthTokenFile,
		}),
		Cache:    c,
		Notifier: newNotificationClient(cfg),
	}

	log.Debug().Msg("Clients initialized successfully")
	return a, nil
}

func (a *App) Close() error {
	return a.Cache.Close()
}

// Service connects to Google Sheets and returns the budget service. It fails with
// budget.ErrAuthRequired when the user has not signed in.
func (a *App) Service(ctx context.Context) (*budget.Service, error) {
	opts, err := a.Auth.ClientOptions(ctx)
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if err := a.seedSpreadsheet(); err != nil {
		return nil, err
	}
	return budget.NewService(client, a.Cache), nil
}

// LocalService returns a budget service that only works with cached data and needs no sign-in
func (a *App) LocalService() (*budget.Service, error) {
	if err := a.seedSpreadsheet(); err != nil {
		return nil, err
	}
	return budget.NewService(nil, a.Cache), nil
}

// SignOut removes the user's credentials and every cached value
func (a *App) SignOut(ctx context.Context) error {
	if err := a.Auth.SignOut(ctx); err != nil {
		return err
	}
	return budget.NewService(nil, a.Cache).SignOut()
}

// seedSpreadsheet stores SPREADSHEET_ID as the active spreadsheet when none was chosen yet
func (a *App) seedSpreadsheet() error {
	if a.Config.SpreadsheetID == "" || a.Cache.IsSpreadsheetIDValid() {
		return nil
	}
	log.Info().Str("spreadsheet_id", a.Config.SpreadsheetID).Msg("Using spreadsheet from environment")
	return a.Cache.PutSpreadsheetID(a.Config.SpreadsheetID)
}

func newNotificationClient(cfg Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.NtfyEnabled).
		Str("base_url", cfg.NtfyURL).
		Str("topic", cfg.NtfyTopic).
		Msg("Initializing notification client")

	client := notifications.NewClient(notifications.Options{
		BaseURL:  cfg.NtfyURL,
		Topic:    cfg.NtfyTopic,
		Priority: cfg.NtfyPriority,
		Enabled:  cfg.NtfyEnabled,
		Retry:    config.DefaultResilienceConfig.Notification,
	})

	if cfg.NtfyEnabled {
		log.Info().Str("topic", cfg.NtfyTopic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}
	return client
}
