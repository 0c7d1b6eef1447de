package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/geo"
)

func TestAssignInitialRoundCardsIsIdempotent(t *testing.T) {
	eng := newTestEngine(t, nil, "p1", "p2")
	before := eng.State().Inventories["p1"]

	eng.AssignInitialRoundCards()
	eng.AssignInitialRoundCards()

	assert.Equal(t, before, eng.State().Inventories["p1"])
	assert.Equal(t, roundCard("p1", cards.World), before.RoundCards[0].ID)
	assert.Equal(t, roundCard("p1", cards.Flash), before.RoundCards[1].ID)

	// spent cards are not handed out again
	require.True(t, eng.ConsumeRoundCard("p1", roundCard("p1", cards.World)))
	eng.AssignInitialRoundCards()
	assert.Len(t, eng.State().Inventories["p1"].RoundCards, 1)
}

func TestConsumeRoundCard(t *testing.T) {
	eng := newTestEngine(t, nil, "p1", "p2")
	id := roundCard("p2", cards.Flash)

	assert.True(t, eng.ConsumeRoundCard("p2", id))
	assert.False(t, eng.ConsumeRoundCard("p2", id))
	assert.False(t, eng.ConsumeRoundCard("p1", id), "card belongs to p2")
	assert.False(t, eng.ConsumeRoundCard("ghost", id))

	inv := eng.State().Inventories["p2"]
	require.Len(t, inv.RoundCards, 1)
	assert.Equal(t, cards.World, inv.RoundCards[0].Kind)
	assert.Equal(t, 1, eng.Snapshot().PlayerInfo["p2"].RoundCardsLeft)
}

func TestSelectConsumedRoundCard(t *testing.T) {
	eng := newTestEngine(t, nil, "p1", "p2")
	src := &stubSource{target: geo.Coordinate{Lat: 45, Lng: 45}}
	id := roundCard("p1", cards.World)

	require.True(t, eng.ConsumeRoundCard("p1", id))

	err := eng.SelectRoundCard(context.Background(), src, "p1", id)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, AwaitingRoundCard, eng.Status())
}

func TestDealActionCards(t *testing.T) {
	eng := newTestEngine(t, nil, "p1", "p2", "p3")

	for i := 0; i < 3; i++ {
		eng.DealActionCards()
		for _, p := range eng.State().Players {
			hand := eng.State().Inventories[p.ID].ActionCards
			require.Len(t, hand, 1)
			_, ok := cards.LookupActionCard(hand[0])
			assert.True(t, ok, hand[0])
		}
	}
}

// startedRound returns an engine in AWAITING_ACTION_CARDS with the given hands.
func startedRound(t *testing.T, hands map[string]string, ids ...string) *GameEngine {
	t.Helper()
	eng := newTestEngine(t, nil, ids...)
	src := &stubSource{target: geo.Coordinate{Lat: 45, Lng: 45}}
	require.NoError(t, eng.SelectRoundCard(context.Background(), src, ids[0], roundCard(ids[0], cards.World)))
	for id, card := range hands {
		inv := eng.state.Inventories[id]
		inv.ActionCards = []string{card}
		eng.state.Inventories[id] = inv
	}
	return eng
}

func TestConsumeActionCard(t *testing.T) {
	t.Run("punish blurs the target", func(t *testing.T) {
		eng := startedRound(t, map[string]string{"p1": "punish"}, "p1", "p2")

		effect, err := eng.PlayActionCard("p1", "punish", "p2")
		require.NoError(t, err)
		assert.Equal(t, cards.BlurScreen, effect.Card)
		assert.Equal(t, "p2", effect.Target)
		assert.Equal(t, cards.BlurDurationSeconds, effect.DurationSeconds)

		s := eng.State()
		assert.True(t, s.CardsPlayedThisRound["p1"])
		assert.True(t, s.PunishmentsThisRound["p2"]["punish"])
		assert.Empty(t, s.Inventories["p1"].ActionCards)
		require.Len(t, s.ActiveEffects["p2"], 1)
		assert.Equal(t, 0, eng.Snapshot().PlayerInfo["p1"].ActionCardsLeft)
		assert.Len(t, eng.Snapshot().PlayerInfo["p2"].ActiveEffects, 1)
	})

	t.Run("reveal names the target continent", func(t *testing.T) {
		eng := startedRound(t, map[string]string{"p2": "reveal"}, "p1", "p2")

		effect, err := eng.PlayActionCard("p2", "reveal", "p1")
		require.NoError(t, err)
		assert.Equal(t, "p2", effect.Target)
		assert.Equal(t, geo.Asia, effect.Continent)
		assert.Empty(t, eng.State().PunishmentsThisRound)
	})

	t.Run("one action card per round", func(t *testing.T) {
		eng := startedRound(t, map[string]string{"p1": "reveal"}, "p1", "p2")

		_, err := eng.PlayActionCard("p1", "reveal", "")
		require.NoError(t, err)

		inv := eng.state.Inventories["p1"]
		inv.ActionCards = []string{"punish"}
		eng.state.Inventories["p1"] = inv

		_, err = eng.PlayActionCard("p1", "punish", "p2")
		assert.ErrorIs(t, err, ErrAlreadyConsumed)
		assert.Equal(t, []string{"punish"}, eng.State().Inventories["p1"].ActionCards)
	})

	t.Run("same punishment cannot hit a target twice", func(t *testing.T) {
		eng := startedRound(t, map[string]string{"p1": "punish", "p3": "punish"}, "p1", "p2", "p3")

		_, err := eng.PlayActionCard("p1", "punish", "p2")
		require.NoError(t, err)

		before := eng.State().clone()
		_, err = eng.PlayActionCard("p3", "punish", "p2")
		assert.ErrorIs(t, err, ErrAlreadyConsumed)
		assert.Equal(t, before, eng.State())

		_, err = eng.PlayActionCard("p3", "punish", "p1")
		assert.NoError(t, err)
	})

	t.Run("rejected plays", func(t *testing.T) {
		tests := []struct {
			name   string
			player string
			card   string
			target string
			want   error
		}{
			{"self target", "p1", "punish", "p1", ErrInvalidArgument},
			{"missing target", "p1", "punish", "", ErrInvalidArgument},
			{"unknown target", "p1", "punish", "ghost", ErrNotFound},
			{"card not in hand", "p1", "reveal", "", ErrNotFound},
			{"unknown player", "ghost", "punish", "p1", ErrUnknownPlayer},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				eng := startedRound(t, map[string]string{"p1": "punish", "p2": "reveal"}, "p1", "p2")
				before := eng.State().clone()

				_, err := eng.PlayActionCard(tt.player, tt.card, tt.target)
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, before, eng.State())
			})
		}
	})

	t.Run("outside the action window", func(t *testing.T) {
		eng := startedRound(t, map[string]string{"p1": "reveal"}, "p1", "p2")
		require.NoError(t, eng.StartGuessing("p1"))

		_, err := eng.PlayActionCard("p1", "reveal", "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
