package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const appName = "sheet-budget"

// Config is read from the environment, optionally seeded from a .env file
type Config struct {
	SpreadsheetID   string
	CachePath       string
	CredentialsFile string
	OAuthClientFile string
	OAuthTokenFile  string
	WatchInterval   time.Duration
	NtfyEnabled     bool
	NtfyURL         string
	NtfyTopic       string
	NtfyPriority    string
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		level, parseErr := zerolog.ParseLevel(levelStr)
		if parseErr != nil || level == zerolog.NoLevel {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
		} else {
			zerolog.SetGlobalLevel(level)
		}
	}

	// reported late so logging is configured first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// LoadConfig collects the configuration from environment variables
func LoadConfig() (Config, error) {
	interval, err := time.ParseDuration(GetEnvWithDefault("WATCH_INTERVAL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid WATCH_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("invalid WATCH_INTERVAL: must be positive")
	}

	config := Config{
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CachePath:       GetEnvWithDefault("CACHE_PATH", defaultPath(os.UserCacheDir, "cache.db")),
		CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		OAuthClientFile: GetEnvWithDefault("GOOGLE_OAUTH_CLIENT_FILE", "client_secret.json"),
		OAuthTokenFile:  GetEnvWithDefault("GOOGLE_OAUTH_TOKEN_FILE", defaultPath(os.UserConfigDir, "token.json")),
		WatchInterval:   interval,
		NtfyEnabled:     GetEnvWithDefault("NTFY_ENABLED", "false") == "true",
		NtfyURL:         GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
		NtfyTopic:       GetEnvWithDefault("NTFY_TOPIC", appName),
		NtfyPriority:    GetEnvWithDefault("NTFY_PRIORITY", "default"),
	}

	log.Debug().
		Str("cache_path", config.CachePath).
		Bool("service_account", config.CredentialsFile != "").
		Dur("watch_interval", config.WatchInterval).
		Msg("Loaded configuration")
	return config, nil
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// defaultPath places file under the per-user directory returned by dir, or the working
// directory when there is none
func defaultPath(dir func() (string, error), file string) string {
	base, err := dir()
	if err != nil || base == "" {
		return appName + "-" + file
	}
	return filepath.Join(base, appName, file)
}
