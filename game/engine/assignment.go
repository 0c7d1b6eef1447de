package engine

import (
	"fmt"
	"slices"

	"github.com/wricardo/geocard/game/cards"
)

// AssignInitialRoundCards gives every player one card of each round card
// kind. Card ids depend only on session, player and kind, and cards a player
// already holds or has spent are skipped, so calling it again is a no-op.
func (e *GameEngine) AssignInitialRoundCards() {
	s := e.state
	catalog := cards.RoundCards()
	s.RoundCardStartAmount = len(catalog)

	for _, p := range s.Players {
		inv := s.Inventories[p.ID]
		for _, card := range catalog {
			id := cards.RoundCardID(s.SessionID, p.ID, card.Kind)
			if holdsRoundCard(inv, id) || s.ConsumedRoundCards[p.ID][id] {
				continue
			}
			inv.RoundCards = append(inv.RoundCards, cards.HeldRoundCard{ID: id, Kind: card.Kind})
		}
		s.Inventories[p.ID] = inv
	}
}

// DealActionCards replaces every player's action cards with one fresh draw.
func (e *GameEngine) DealActionCards() {
	s := e.state
	for _, p := range s.Players {
		inv := s.Inventories[p.ID]
		inv.ActionCards = []string{string(e.deck.DrawActionCard().ID)}
		s.Inventories[p.ID] = inv
	}
}

// ConsumeRoundCard removes a round card from the player's inventory. It
// returns false when the player does not hold the card.
func (e *GameEngine) ConsumeRoundCard(playerID, cardID string) bool {
	s := e.state
	inv, ok := s.Inventories[playerID]
	if !ok {
		return false
	}
	idx := slices.IndexFunc(inv.RoundCards, func(c cards.HeldRoundCard) bool { return c.ID == cardID })
	if idx < 0 {
		return false
	}
	inv.RoundCards = slices.Delete(inv.RoundCards, idx, idx+1)
	s.Inventories[playerID] = inv
	markSet(s.ConsumedRoundCards, playerID, cardID)
	return true
}

// ConsumeActionCard validates and applies an action card play. A player may
// play one action card per round and the same punishment card may hit a
// target only once per round. The returned effect is also recorded on the
// affected player.
func (e *GameEngine) ConsumeActionCard(playerID, cardID, targetID string) (cards.Effect, error) {
	s := e.state
	if !e.HasPlayer(playerID) {
		return cards.Effect{}, ErrUnknownPlayer
	}
	if s.CardsPlayedThisRound[playerID] {
		return cards.Effect{}, fmt.Errorf("%w: %s already played an action card this round", ErrAlreadyConsumed, playerID)
	}

	inv := s.Inventories[playerID]
	idx := slices.Index(inv.ActionCards, cardID)
	if idx < 0 {
		return cards.Effect{}, fmt.Errorf("%w: action card %q is not in hand", ErrNotFound, cardID)
	}
	card, ok := cards.LookupActionCard(cardID)
	if !ok {
		return cards.Effect{}, fmt.Errorf("%w: unknown action card %q", ErrNotFound, cardID)
	}

	if card.NeedsTarget() {
		switch {
		case targetID == "":
			return cards.Effect{}, fmt.Errorf("%w: %q needs a target player", ErrInvalidArgument, cardID)
		case targetID == playerID:
			return cards.Effect{}, fmt.Errorf("%w: cannot play %q on yourself", ErrInvalidArgument, cardID)
		case !e.HasPlayer(targetID):
			return cards.Effect{}, fmt.Errorf("%w: target player %q", ErrNotFound, targetID)
		case s.PunishmentsThisRound[targetID][cardID]:
			return cards.Effect{}, fmt.Errorf("%w: %s was already hit by %q this round", ErrAlreadyConsumed, targetID, cardID)
		}
	} else {
		targetID = ""
	}

	play := cards.Play{Card: card, Source: playerID, Target: targetID}
	if s.CurrentCoordinate != nil {
		play.RoundTarget = s.CurrentCoordinate.Coordinate
	}
	effect, err := cards.Resolve(play)
	if err != nil {
		return cards.Effect{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	inv.ActionCards = slices.Delete(inv.ActionCards, idx, idx+1)
	s.Inventories[playerID] = inv
	s.CardsPlayedThisRound[playerID] = true
	if card.NeedsTarget() {
		markSet(s.PunishmentsThisRound, targetID, cardID)
	}
	s.ActiveEffects[effect.Target] = append(s.ActiveEffects[effect.Target], effect)
	s.ActionsThisRound = append(s.ActionsThisRound, ActionPlay{PlayerID: playerID, Effect: effect})

	return effect, nil
}

func holdsRoundCard(inv Inventory, cardID string) bool {
	return slices.ContainsFunc(inv.RoundCards, func(c cards.HeldRoundCard) bool { return c.ID == cardID })
}

func (e *GameEngine) findRoundCard(playerID, cardID string) (cards.HeldRoundCard, bool) {
	for _, c := range e.state.Inventories[playerID].RoundCards {
		if c.ID == cardID {
			return c, true
		}
	}
	return cards.HeldRoundCard{}, false
}

func (e *GameEngine) anyPlayerOutOfRoundCards() bool {
	for _, p := range e.state.Players {
		if len(e.state.Inventories[p.ID].RoundCards) == 0 {
			return true
		}
	}
	return false
}
