// Package config loads the party playlist service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the optional settings.
const (
	DefaultAddr            = ":8888"
	DefaultPollInterval    = 2500 * time.Millisecond
	DefaultRebuildInterval = 10 * time.Second
)

var (
	// ErrMissingCredentials is returned when any Spotify credential variable is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET or SPOTIFY_REFRESH_TOKEN environment variable")

	// ErrMissingPlaylist is returned when SPOTIFY_PLAYLIST_ID is not set.
	ErrMissingPlaylist = errors.New("missing SPOTIFY_PLAYLIST_ID environment variable")
)

// Config holds the service configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	PlaylistID   string

	Addr            string
	PollInterval    time.Duration
	RebuildInterval time.Duration

	LogLevel string
	LogFile  string
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables already set take precedence. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
		PlaylistID:   os.Getenv("SPOTIFY_PLAYLIST_ID"),
		Addr:         envOr("PARTY_ADDR", DefaultAddr),
		LogLevel:     envOr("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.PlaylistID == "" {
		return nil, ErrMissingPlaylist
	}

	var err error
	if cfg.PollInterval, err = durationEnv("PARTY_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.RebuildInterval, err = durationEnv("PARTY_REBUILD_INTERVAL", DefaultRebuildInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parsing %s: interval must be positive, got %s", key, d)
	}
	return d, nil
}
