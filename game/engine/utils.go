package engine

import (
	"maps"
	"slices"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/geo"
)

// clone returns a deep copy of the state.
func (s *GameState) clone() *GameState {
	c := *s

	c.Players = slices.Clone(s.Players)
	if s.ActiveRoundCard != nil {
		card := *s.ActiveRoundCard
		c.ActiveRoundCard = &card
	}
	if s.CurrentCoordinate != nil {
		loc := *s.CurrentCoordinate
		c.CurrentCoordinate = &loc
	}
	if s.GuessWindow != nil {
		window := *s.GuessWindow
		c.GuessWindow = &window
	}

	c.PlayerGuesses = maps.Clone(s.PlayerGuesses)
	c.CardsPlayedThisRound = maps.Clone(s.CardsPlayedThisRound)
	c.UsedLocators = maps.Clone(s.UsedLocators)
	c.RoundWins = maps.Clone(s.RoundWins)
	c.CumulativeDistance = maps.Clone(s.CumulativeDistance)
	c.GuessesSubmitted = maps.Clone(s.GuessesSubmitted)
	c.PunishmentsThisRound = cloneNested(s.PunishmentsThisRound)
	c.ConsumedRoundCards = cloneNested(s.ConsumedRoundCards)

	c.Inventories = make(map[string]Inventory, len(s.Inventories))
	for id, inv := range s.Inventories {
		c.Inventories[id] = Inventory{
			RoundCards:  slices.Clone(inv.RoundCards),
			ActionCards: slices.Clone(inv.ActionCards),
		}
	}
	c.ActiveEffects = make(map[string][]cards.Effect, len(s.ActiveEffects))
	for id, effects := range s.ActiveEffects {
		c.ActiveEffects[id] = slices.Clone(effects)
	}

	c.ActionsThisRound = slices.Clone(s.ActionsThisRound)
	c.History = slices.Clone(s.History)
	for i := range c.History {
		c.History[i].Guesses = maps.Clone(s.History[i].Guesses)
	}

	return &c
}

func cloneNested(m map[string]map[string]bool) map[string]map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]map[string]bool, len(m))
	for k, v := range m {
		out[k] = maps.Clone(v)
	}
	return out
}

// markSet adds key to the inner set of m[outer], creating it when needed.
func markSet(m map[string]map[string]bool, outer, key string) {
	inner := m[outer]
	if inner == nil {
		inner = make(map[string]bool)
		m[outer] = inner
	}
	inner[key] = true
}

// guessWindowFor derives the guess screen attributes for a round.
func guessWindowFor(card cards.RoundCard, target geo.Coordinate) *GuessWindow {
	return &GuessWindow{
		Seconds:   card.Modifiers.TimeSeconds,
		Latitude:  target.Lat,
		Longitude: target.Lng,
	}
}
