package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/geocard/api"
	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/game/cards"
	gameconfig "github.com/wricardo/geocard/game/config"
	"github.com/wricardo/geocard/game/coords"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/game/service"
	"github.com/wricardo/geocard/game/session"
	"github.com/wricardo/geocard/transport/websocket"
)

func newTestServer(t *testing.T, tokens map[string]auth.Identity) *httptest.Server {
	t.Helper()

	ids := auth.NewMemoryResolver()
	for tok, id := range tokens {
		ids.Register(tok, id)
	}
	configs, err := gameconfig.NewManager("../presets")
	require.NoError(t, err)

	svc := service.NewGameService(
		session.NewManager(engine.WithDeck(cards.NewSeededDeck(7))),
		configs,
		ids,
		coords.NewFallbackSource(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(api.NewServer(svc, hub))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunnerPlaysFullGame(t *testing.T) {
	srv := newTestServer(t, map[string]auth.Identity{
		"tok-ada": {PlayerID: "ada", DisplayName: "Ada"},
		"tok-bo":  {PlayerID: "bo", DisplayName: "Bo"},
		"tok-cy":  {PlayerID: "cy", DisplayName: "Cy"},
	})

	runner := NewRunner(NewClient(srv.URL), NewContinentStrategy(1), []string{"tok-ada", "tok-bo", "tok-cy"})
	runner.Poll = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	summary, err := runner.Run(ctx, service.CreateGameRequest{Preset: "quick"})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.NotEmpty(t, summary.Winner)
	assert.Len(t, summary.Players, 3)
	assert.Positive(t, summary.RoundsPlayed)
	assert.LessOrEqual(t, summary.RoundsPlayed, 3)

	var wins int
	for _, p := range summary.Players {
		wins += p.RoundWins
		assert.Equal(t, summary.RoundsPlayed, p.GuessesSubmitted, p.PlayerID)
	}
	assert.Equal(t, summary.RoundsPlayed, wins)
}

func TestRunnerWaitsForOtherPlayers(t *testing.T) {
	srv := newTestServer(t, map[string]auth.Identity{
		"tok-ada": {PlayerID: "ada", DisplayName: "Ada"},
		"tok-bo":  {PlayerID: "bo", DisplayName: "Bo"},
	})
	client := NewClient(srv.URL)
	ctx := context.Background()

	game, err := client.CreateGame(ctx, service.CreateGameRequest{PlayerTokens: []string{"tok-ada", "tok-bo"}})
	require.NoError(t, err)

	// bo is a bot; ada never moves, so the game can't leave the first phase.
	runner := NewRunner(client, NewContinentStrategy(2), []string{"tok-bo"})
	runner.Poll = time.Millisecond
	runner.MaxSteps = 5

	_, err = runner.Play(ctx, game.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finished")

	after, err := client.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.AwaitingRoundCard, after.Snapshot.Status)
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t, map[string]auth.Identity{
		"tok-ada": {PlayerID: "ada", DisplayName: "Ada"},
		"tok-bo":  {PlayerID: "bo", DisplayName: "Bo"},
	})
	client := NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.GetGame(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	game, err := client.CreateGame(ctx, service.CreateGameRequest{PlayerTokens: []string{"tok-ada", "tok-bo"}})
	require.NoError(t, err)

	_, err = client.NextRound(ctx, game.ID, "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = client.NextRound(ctx, game.ID, "tok-bo")
	assert.True(t, IsConflict(err), "next round before the round is resolved: %v", err)

	_, err = client.Inventory(ctx, game.ID, "tok-nobody")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClientRetriesReads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"g1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	game, err := client.GetGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", game.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestContinentStrategy(t *testing.T) {
	s := NewContinentStrategy(3)

	inv := &service.InventoryView{
		ActiveEffects: []cards.Effect{{Card: cards.RevealContinent, Continent: geo.Europe}},
	}
	assert.Equal(t, continentAnchors[geo.Europe], s.Guess(inv))

	c := s.Guess(&service.InventoryView{})
	assert.NoError(t, c.Validate())

	card, target := s.Action(&service.InventoryView{
		CanPlayAction: true,
		ActionCards:   []cards.ActionCard{{ID: cards.BlurScreen, Type: cards.Punishment}, {ID: cards.RevealContinent, Type: cards.PowerUp}},
	}, []string{"bo"})
	assert.Equal(t, string(cards.RevealContinent), card)
	assert.Empty(t, target)

	card, target = s.Action(&service.InventoryView{
		CanPlayAction: true,
		ActionCards:   []cards.ActionCard{{ID: cards.BlurScreen, Type: cards.Punishment}},
	}, []string{"bo"})
	assert.Equal(t, string(cards.BlurScreen), card)
	assert.Equal(t, "bo", target)

	card, _ = s.Action(&service.InventoryView{ActionCards: []cards.ActionCard{{ID: cards.RevealContinent}}}, nil)
	assert.Empty(t, card)
}
