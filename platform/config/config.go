// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PresetsDir holds the JSON rule presets.
	PresetsDir string `env:"GEOCARD_PRESETS_DIR" envDefault:"presets"`
	// ArchiveURL selects where finished games are stored, see game/archive.
	ArchiveURL string `env:"GEOCARD_ARCHIVE_URL" envDefault:"memory://"`

	// DefaultPreset overrides the preset used when a game names none.
	DefaultPreset string `env:"GEOCARD_DEFAULT_PRESET"`

	StreetViewAPIKey string `env:"STREETVIEW_API_KEY"`
	// LocationAttempts bounds Street View lookups per round.
	LocationAttempts uint `env:"GEOCARD_LOCATION_ATTEMPTS" envDefault:"60"`

	JWTSecret string `env:"GEOCARD_JWT_SECRET"`
	JWTIssuer string `env:"GEOCARD_JWT_ISSUER" envDefault:"geocard"`

	SessionIdleTimeout  time.Duration `env:"GEOCARD_SESSION_IDLE_TIMEOUT" envDefault:"1h"`
	FinishedGameDelay   time.Duration `env:"GEOCARD_FINISHED_GAME_DELAY" envDefault:"60s"`
	CleanupInterval     time.Duration `env:"GEOCARD_CLEANUP_INTERVAL" envDefault:"1m"`
	RoundTimers         bool          `env:"GEOCARD_ROUND_TIMERS" envDefault:"true"`
	ShutdownGracePeriod time.Duration `env:"GEOCARD_SHUTDOWN_GRACE" envDefault:"10s"`

	NgrokEnabled bool   `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv reads the given files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads .env and then the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: GEOCARD_JWT_SECRET must be at least 16 bytes")
	}
	if c.FinishedGameDelay < 0 || c.SessionIdleTimeout < 0 {
		return fmt.Errorf("config: durations cannot be negative")
	}
	return nil
}
