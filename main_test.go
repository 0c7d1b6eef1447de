package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/game/coords"
	"github.com/wricardo/geocard/game/service"
	"github.com/wricardo/geocard/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               8080,
		PresetsDir:         "presets",
		ArchiveURL:         "memory://",
		JWTIssuer:          "geocard",
		SessionIdleTimeout: time.Hour,
		FinishedGameDelay:  time.Minute,
		CleanupInterval:    time.Minute,
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Geocard Game Server", AppName)
}

func TestAppCommands(t *testing.T) {
	app := newApp()

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "mcp", "token", "validate", "bot"}, names)
	assert.NotNil(t, app.Action, "serve is the default action")
}

func TestInitializeServices(t *testing.T) {
	ctx := context.Background()
	svc, err := initializeServices(ctx, testConfig(t), []string{"Ada", "Bo"})
	require.NoError(t, err)
	defer svc.archive.Close(ctx)

	game, err := svc.game.CreateGame(ctx, service.CreateGameRequest{
		PlayerTokens: []string{"dev-ada", "dev-bo"},
		Preset:       "quick",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, game.Rules.MaxRounds)
	assert.Equal(t, "ada", game.Snapshot.CurrentTurnPlayer)

	presets, err := svc.game.ListPresets(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, presets)
}

func TestInitializeServices_BadArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveURL = "ftp://nowhere"

	_, err := initializeServices(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestInitializeServices_PresetsPathIsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PresetsDir = filepath.Join("presets", "classic.json")

	_, err := initializeServices(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestInitializeServices_DefaultPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultPreset = "quick"

	svc, err := initializeServices(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, svc.presets.Default().MaxRounds)

	require.NoError(t, reloadPresets(svc.presets, cfg.DefaultPreset))
	assert.Equal(t, 3, svc.presets.Default().MaxRounds, "reload keeps the configured default")

	cfg.DefaultPreset = "missing"
	_, err = initializeServices(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestIdentityResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("dev players", func(t *testing.T) {
		r, err := identityResolver(testConfig(t), []string{"Ada", " "})
		require.NoError(t, err)

		id, err := r.ResolvePlayer(ctx, "dev-ada")
		require.NoError(t, err)
		assert.Equal(t, auth.Identity{PlayerID: "ada", DisplayName: "Ada"}, id)

		_, err = r.ResolvePlayer(ctx, "dev-")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("jwt", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTSecret = "0123456789abcdef0123"

		r, err := identityResolver(cfg, []string{"Ada"})
		require.NoError(t, err)

		issuer, err := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
		require.NoError(t, err)
		token, err := issuer.Issue(auth.Identity{PlayerID: "cy", DisplayName: "Cy"}, time.Hour)
		require.NoError(t, err)

		id, err := r.ResolvePlayer(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "cy", id.PlayerID)

		_, err = r.ResolvePlayer(ctx, "dev-ada")
		assert.Error(t, err, "dev tokens are ignored once JWT is configured")
	})
}

func TestCoordinateSource(t *testing.T) {
	cfg := testConfig(t)
	_, ok := coordinateSource(cfg).(*coords.RandomSource)
	assert.True(t, ok)

	cfg.StreetViewAPIKey = "key"
	cfg.LocationAttempts = 7
	src, ok := coordinateSource(cfg).(*coords.ResilientSource)
	require.True(t, ok)
	assert.Equal(t, uint(7), src.MaxAttempts)
	_, ok = src.Primary.(*coords.StreetViewSource)
	assert.True(t, ok)
}

func TestHandlerServesAPIAndMCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := initializeServices(ctx, testConfig(t), nil)
	require.NoError(t, err)
	go svc.hub.Run(ctx)

	srv := httptest.NewServer(svc.handler("http://unused"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/mcp")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
