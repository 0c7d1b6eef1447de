package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory://", cfg.ArchiveURL)
	assert.Equal(t, 60*time.Second, cfg.FinishedGameDelay)
	assert.Equal(t, uint(60), cfg.LocationAttempts)
	assert.True(t, cfg.RoundTimers)
	assert.NoError(t, cfg.Validate())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GEOCARD_FINISHED_GAME_DELAY", "5s")
	t.Setenv("GEOCARD_ROUND_TIMERS", "false")

	var cfg Config
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.FinishedGameDelay)
	assert.False(t, cfg.RoundTimers)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("PORT", "not-an-int")

	var cfg Config
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	cfg := Config{Port: 8080, JWTSecret: "short"}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GEOCARD_TEST_DOTENV=from-file\nPORT=1234\n"), 0644))
	t.Setenv("PORT", "4321")
	t.Cleanup(func() { os.Unsetenv("GEOCARD_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("GEOCARD_TEST_DOTENV"))
	assert.Equal(t, "4321", os.Getenv("PORT"), "existing variables win")

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
