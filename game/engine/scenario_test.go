package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/geo"
)

func TestTwoPlayerRound(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, nil, "P1", "P2")
	src := &stubSource{target: geo.Coordinate{Lat: 45.0, Lng: 45.0}}

	require.NoError(t, eng.SelectRoundCard(ctx, src, "P1", roundCard("P1", cards.World)))
	assert.Equal(t, 60, eng.State().GuessWindow.Seconds)
	require.NoError(t, eng.StartGuessing("P1"))

	g1, err := eng.SubmitGuess("P1", geo.Coordinate{Lat: 44.0, Lng: 44.0})
	require.NoError(t, err)
	g2, err := eng.SubmitGuess("P2", geo.Coordinate{Lat: 46.0, Lng: 46.0})
	require.NoError(t, err)
	require.True(t, eng.AllGuessesSubmitted())

	target := geo.Coordinate{Lat: 45.0, Lng: 45.0}
	assert.Equal(t, geo.Distance(geo.Coordinate{Lat: 44, Lng: 44}, target), g1.Distance)
	assert.Equal(t, geo.Distance(geo.Coordinate{Lat: 46, Lng: 46}, target), g2.Distance)

	closer := "P1"
	if g2.Distance < g1.Distance {
		closer = "P2"
	}

	result, err := eng.DetermineRoundWinner()
	require.NoError(t, err)
	assert.Equal(t, closer, result.Winner)
	assert.Equal(t, RoundComplete, eng.Status())

	require.NoError(t, eng.AdvanceRound())
	assert.Equal(t, AwaitingRoundCard, eng.Status())
	assert.Equal(t, closer, eng.State().CurrentTurnPlayer)
}

// playRound runs one round led by leader with the given card, which winner
// wins by guessing the target exactly.
func playRound(t *testing.T, eng *GameEngine, src *stubSource, leader string, kind cards.RoundCardKind, winner string) {
	t.Helper()
	require.NoError(t, eng.SelectRoundCard(context.Background(), src, leader, roundCard(leader, kind)))
	require.NoError(t, eng.StartGuessing(leader))
	for _, p := range eng.State().Players {
		guess := geo.Coordinate{Lat: -30, Lng: -60}
		if p.ID == winner {
			guess = src.target
		}
		_, err := eng.SubmitGuess(p.ID, guess)
		require.NoError(t, err)
	}
	result, err := eng.DetermineRoundWinner()
	require.NoError(t, err)
	require.Equal(t, winner, result.Winner)
	require.NoError(t, eng.AdvanceRound())
}

func TestGameOverAfterMaxRounds(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 3
	eng := newTestEngine(t, rules, "P1", "P2")
	src := &stubSource{target: geo.Coordinate{Lat: 45, Lng: 45}}

	playRound(t, eng, src, "P1", cards.World, "P2")
	assert.Equal(t, AwaitingRoundCard, eng.Status())
	playRound(t, eng, src, "P2", cards.World, "P1")
	assert.Equal(t, AwaitingRoundCard, eng.Status())
	playRound(t, eng, src, "P1", cards.Flash, "P2")

	s := eng.State()
	assert.Equal(t, GameOver, s.Status)
	assert.Equal(t, 3, s.CurrentRound)
	assert.Equal(t, "P2", s.GameWinner)
	assert.False(t, s.CompletedAt.IsZero())
	assert.Equal(t, ScreenGameOver, eng.Snapshot().CurrentScreen)

	summary, ok := eng.Summary()
	require.True(t, ok)
	assert.Equal(t, "P2", summary.Winner)
	assert.Equal(t, 3, summary.RoundsPlayed)
	assert.Equal(t, 2, summary.RoundCardStartAmount)
	assert.Equal(t, s.StartedAt, summary.StartedAt)
	require.Len(t, summary.Players, 2)
	assert.Equal(t, PlayerResult{
		PlayerID:         "P1",
		DisplayName:      "Player P1",
		RoundWins:        1,
		TotalDistance:    s.CumulativeDistance["P1"],
		GuessesSubmitted: 3,
		XP:               3*XPPerGuess + XPPerRoundWin,
	}, summary.Players[0])
	assert.Equal(t, 3*XPPerGuess+2*XPPerRoundWin+XPPerGameWin, summary.Players[1].XP)
}

func TestGameEndsWhenAPlayerRunsOutOfRoundCards(t *testing.T) {
	eng := newTestEngine(t, nil, "P1", "P2")
	src := &stubSource{target: geo.Coordinate{Lat: 10, Lng: 10}}

	playRound(t, eng, src, "P1", cards.World, "P1")
	assert.Equal(t, AwaitingRoundCard, eng.Status())
	playRound(t, eng, src, "P1", cards.Flash, "P1")

	assert.Equal(t, GameOver, eng.Status())
	assert.Equal(t, 2, eng.State().CurrentRound)
	assert.Equal(t, "P1", eng.State().GameWinner)
	assert.Len(t, eng.State().Inventories["P2"].RoundCards, 2)
}

func TestGameWinnerTieBreak(t *testing.T) {
	eng := newTestEngine(t, nil, "P1", "P2", "P3")
	s := eng.state
	s.RoundWins = map[string]int{"P1": 1, "P2": 1, "P3": 0}
	s.CumulativeDistance = map[string]float64{"P1": 900, "P2": 400, "P3": 10}
	assert.Equal(t, "P2", eng.pickGameWinner())

	s.CumulativeDistance["P1"] = 400
	assert.Equal(t, "P1", eng.pickGameWinner(), "full tie keeps roster order")

	s.RoundWins = map[string]int{}
	assert.Equal(t, "P3", eng.pickGameWinner())
}

func TestGameOverRejectsEverything(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 1
	eng := newTestEngine(t, rules, "P1", "P2")
	src := &stubSource{target: geo.Coordinate{Lat: 45, Lng: 45}}
	playRound(t, eng, src, "P1", cards.World, "P2")
	require.Equal(t, GameOver, eng.Status())

	before := eng.State().clone()

	assert.ErrorIs(t, eng.SelectRoundCard(context.Background(), src, "P2", roundCard("P2", cards.World)), ErrGameAlreadyOver)
	_, err := eng.PlayActionCard("P1", "reveal", "")
	assert.ErrorIs(t, err, ErrGameAlreadyOver)
	assert.ErrorIs(t, eng.StartGuessing("P2"), ErrGameAlreadyOver)
	assert.ErrorIs(t, eng.ExpireActionWindow(), ErrGameAlreadyOver)
	_, err = eng.SubmitGuess("P1", geo.Coordinate{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, ErrGameAlreadyOver)
	_, err = eng.DetermineRoundWinner()
	assert.ErrorIs(t, err, ErrGameAlreadyOver)
	_, err = eng.ForceResolve()
	assert.ErrorIs(t, err, ErrGameAlreadyOver)
	assert.ErrorIs(t, eng.AdvanceRound(), ErrGameAlreadyOver)

	assert.Equal(t, before, eng.State())
}

func TestSummaryBeforeGameOver(t *testing.T) {
	eng := newTestEngine(t, nil, "P1", "P2")
	_, ok := eng.Summary()
	assert.False(t, ok)
}
