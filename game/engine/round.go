package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/geo"
)

// SelectRoundCard starts a new round with one of the turn player's round
// cards. The round target comes from src, which must not return a locator the
// session already used.
func (e *GameEngine) SelectRoundCard(ctx context.Context, src CoordinateSource, playerID, cardID string) error {
	if err := e.checkActive(); err != nil {
		return err
	}
	s := e.state
	if !e.HasPlayer(playerID) {
		return ErrUnknownPlayer
	}
	if s.Status != AwaitingRoundCard {
		return transitionError("select a round card", s.Status)
	}
	if playerID != s.CurrentTurnPlayer {
		return ErrNotYourTurn
	}

	held, ok := e.findRoundCard(playerID, cardID)
	if !ok {
		if s.ConsumedRoundCards[playerID][cardID] {
			return fmt.Errorf("%w: round card %s was already played", ErrAlreadyConsumed, cardID)
		}
		return fmt.Errorf("%w: round card %s", ErrNotFound, cardID)
	}
	card, ok := cards.LookupRoundCard(held.Kind)
	if !ok {
		return fmt.Errorf("%w: round card kind %q", ErrNotFound, held.Kind)
	}

	if src == nil {
		return fmt.Errorf("%w: no coordinate source", ErrInvalidArgument)
	}
	loc, err := src.NextCoordinate(ctx, s.SessionID, maps.Clone(s.UsedLocators))
	if err != nil {
		return fmt.Errorf("fetch coordinate: %w", err)
	}
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("fetch coordinate: %w", err)
	}

	e.ConsumeRoundCard(playerID, cardID)
	s.CurrentRound++
	s.ActiveRoundCardID = cardID
	s.ActiveRoundCard = &card
	s.CurrentCoordinate = &loc
	if loc.Locator != "" {
		s.UsedLocators[loc.Locator] = true
	}
	s.GuessWindow = guessWindowFor(card, loc.Coordinate)
	s.RoundStartedAt = e.now()
	e.DealActionCards()
	s.Status = AwaitingActionCards
	s.Message = fmt.Sprintf("Round %d: %s played %s", s.CurrentRound, e.displayName(playerID), card.Title)

	return nil
}

// PlayActionCard plays one of the player's action cards during the action
// card window. targetID is required for punishments and ignored otherwise.
func (e *GameEngine) PlayActionCard(playerID, cardID, targetID string) (cards.Effect, error) {
	if err := e.checkActive(); err != nil {
		return cards.Effect{}, err
	}
	if !e.HasPlayer(playerID) {
		return cards.Effect{}, ErrUnknownPlayer
	}
	if e.state.Status != AwaitingActionCards {
		return cards.Effect{}, transitionError("play an action card", e.state.Status)
	}

	effect, err := e.ConsumeActionCard(playerID, cardID, targetID)
	if err != nil {
		return cards.Effect{}, err
	}

	e.state.Message = fmt.Sprintf("%s played %s", e.displayName(playerID), cardID)
	return effect, nil
}

// StartGuessing closes the action card window. Only the turn owner may do so.
func (e *GameEngine) StartGuessing(playerID string) error {
	if err := e.checkActive(); err != nil {
		return err
	}
	if !e.HasPlayer(playerID) {
		return ErrUnknownPlayer
	}
	if e.state.Status != AwaitingActionCards {
		return transitionError("start guessing", e.state.Status)
	}
	if playerID != e.state.CurrentTurnPlayer {
		return ErrNotYourTurn
	}

	e.openGuessing()
	return nil
}

// ExpireActionWindow closes the action card window on behalf of a timer.
func (e *GameEngine) ExpireActionWindow() error {
	if err := e.checkActive(); err != nil {
		return err
	}
	if e.state.Status != AwaitingActionCards {
		return transitionError("close the action window", e.state.Status)
	}

	e.openGuessing()
	return nil
}

func (e *GameEngine) openGuessing() {
	e.state.Status = AwaitingGuesses
	e.state.GuessingOpenedAt = e.now()
	e.state.Message = fmt.Sprintf("Round %d: guess the location", e.state.CurrentRound)
}

// SubmitGuess scores a guess against the round target. A later guess from the
// same player replaces the earlier one.
func (e *GameEngine) SubmitGuess(playerID string, c geo.Coordinate) (Guess, error) {
	if err := e.checkActive(); err != nil {
		return Guess{}, err
	}
	s := e.state
	if !e.HasPlayer(playerID) {
		return Guess{}, ErrUnknownPlayer
	}
	if s.Status != AwaitingGuesses {
		return Guess{}, transitionError("submit a guess", s.Status)
	}
	if err := c.Validate(); err != nil {
		return Guess{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if s.CurrentCoordinate == nil {
		return Guess{}, fmt.Errorf("%w: round has no target", ErrInvalidTransition)
	}

	s.GuessSequence++
	g := Guess{
		Coordinate:  c,
		Distance:    geo.Distance(c, s.CurrentCoordinate.Coordinate),
		Sequence:    s.GuessSequence,
		SubmittedAt: e.now(),
	}
	s.PlayerGuesses[playerID] = g
	s.Message = fmt.Sprintf("%s submitted a guess", e.displayName(playerID))

	return g, nil
}

// AllGuessesSubmitted reports whether every player has guessed this round.
func (e *GameEngine) AllGuessesSubmitted() bool {
	return len(e.state.PlayerGuesses) == len(e.state.Players)
}

// DetermineRoundWinner resolves the round once every player has guessed.
func (e *GameEngine) DetermineRoundWinner() (RoundResult, error) {
	if err := e.checkActive(); err != nil {
		return RoundResult{}, err
	}
	if e.state.Status != AwaitingGuesses {
		return RoundResult{}, transitionError("resolve the round", e.state.Status)
	}
	if !e.AllGuessesSubmitted() {
		return RoundResult{}, fmt.Errorf("%w: %d of %d guesses submitted", ErrInvalidTransition, len(e.state.PlayerGuesses), len(e.state.Players))
	}
	return e.resolveRound(false), nil
}

// ForceResolve resolves the round with the guesses received so far. Players
// without a guess cannot win the round.
func (e *GameEngine) ForceResolve() (RoundResult, error) {
	if err := e.checkActive(); err != nil {
		return RoundResult{}, err
	}
	if e.state.Status != AwaitingGuesses {
		return RoundResult{}, transitionError("force-resolve the round", e.state.Status)
	}
	return e.resolveRound(!e.AllGuessesSubmitted()), nil
}

func (e *GameEngine) resolveRound(forced bool) RoundResult {
	s := e.state

	winner := ""
	var best Guess
	for _, p := range s.Players {
		g, ok := s.PlayerGuesses[p.ID]
		if !ok {
			continue
		}
		if winner == "" || g.Distance < best.Distance || (g.Distance == best.Distance && g.Sequence < best.Sequence) {
			winner = p.ID
			best = g
		}
	}

	for _, p := range s.Players {
		if g, ok := s.PlayerGuesses[p.ID]; ok {
			s.CumulativeDistance[p.ID] += g.Distance
			s.GuessesSubmitted[p.ID]++
		} else {
			s.CumulativeDistance[p.ID] += geo.MaxDistanceMeters
		}
	}

	result := RoundResult{
		Round:   s.CurrentRound,
		Guesses: maps.Clone(s.PlayerGuesses),
		Forced:  forced,
	}
	if s.ActiveRoundCard != nil {
		result.RoundCard = s.ActiveRoundCard.Kind
	}
	if s.CurrentCoordinate != nil {
		result.Target = s.CurrentCoordinate.Coordinate
	}

	s.LastRoundWinner = winner
	s.LastRoundWinningDistance = 0
	if winner != "" {
		s.LastRoundWinningDistance = best.Distance
		s.RoundWins[winner]++
		s.CurrentTurnPlayer = winner
		result.Winner = winner
		result.WinningDistance = best.Distance
		s.Message = fmt.Sprintf("Round %d won by %s (%.0f m)", s.CurrentRound, e.displayName(winner), best.Distance)
	} else {
		s.Message = fmt.Sprintf("Round %d ended without guesses", s.CurrentRound)
	}

	s.History = append(s.History, result)
	s.Status = RoundComplete
	return result
}

// AdvanceRound leaves ROUND_COMPLETE. The game ends once the round cap is
// reached or any player has no round cards left; otherwise the round winner
// picks the next round card.
func (e *GameEngine) AdvanceRound() error {
	if err := e.checkActive(); err != nil {
		return err
	}
	s := e.state
	if s.Status != RoundComplete {
		return transitionError("advance to the next round", s.Status)
	}

	e.resetRound()
	if s.CurrentRound >= s.MaxRounds || e.anyPlayerOutOfRoundCards() {
		e.finish()
		return nil
	}

	s.Status = AwaitingRoundCard
	s.Message = fmt.Sprintf("%s chooses the next round card", e.displayName(s.CurrentTurnPlayer))
	return nil
}

func (e *GameEngine) resetRound() {
	s := e.state
	s.PlayerGuesses = make(map[string]Guess)
	s.ActiveRoundCardID = ""
	s.ActiveRoundCard = nil
	s.CurrentCoordinate = nil
	s.GuessWindow = nil
	s.CardsPlayedThisRound = make(map[string]bool)
	s.PunishmentsThisRound = make(map[string]map[string]bool)
	s.ActionsThisRound = nil
	s.ActiveEffects = make(map[string][]cards.Effect)
}

func (e *GameEngine) finish() {
	s := e.state
	s.GameWinner = e.pickGameWinner()
	s.CompletedAt = e.now()
	s.Status = GameOver
	for _, p := range s.Players {
		inv := s.Inventories[p.ID]
		inv.ActionCards = nil
		s.Inventories[p.ID] = inv
	}
	s.Message = fmt.Sprintf("Game over! %s wins", e.displayName(s.GameWinner))
}

// pickGameWinner returns the player with the most round wins. Ties go to the
// lowest cumulative distance, then to roster order.
func (e *GameEngine) pickGameWinner() string {
	s := e.state
	winner := ""
	for _, p := range s.Players {
		if winner == "" {
			winner = p.ID
			continue
		}
		wins, bestWins := s.RoundWins[p.ID], s.RoundWins[winner]
		if wins > bestWins || (wins == bestWins && s.CumulativeDistance[p.ID] < s.CumulativeDistance[winner]) {
			winner = p.ID
		}
	}
	return winner
}
