package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/geocard/game/cards"
)

// GameEngine applies game operations to one session's state.
type GameEngine struct {
	state *GameState
	rules *Rules
	deck  *cards.Deck
	now   func() time.Time
}

// Option configures a GameEngine.
type Option func(*GameEngine)

// WithDeck sets the deck action cards are drawn from.
func WithDeck(deck *cards.Deck) Option {
	return func(e *GameEngine) { e.deck = deck }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *GameEngine) { e.now = now }
}

// NewEngine creates a session in AWAITING_ROUND_CARD with round cards dealt.
// The first player in players leads the first round.
func NewEngine(sessionID string, players []Player, rules *Rules, opts ...Option) (*GameEngine, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}
	if rules == nil {
		rules = DefaultRules()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, fmt.Errorf("%w: need between %d and %d players, got %d", ErrInvalidArgument, MinPlayers, MaxPlayers, len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: player id is required", ErrInvalidArgument)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate player %q", ErrInvalidArgument, p.ID)
		}
		seen[p.ID] = true
	}

	e := &GameEngine{
		rules: rules,
		deck:  cards.NewDeck(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	roster := make([]Player, len(players))
	copy(roster, players)

	e.state = &GameState{
		SessionID:            sessionID,
		Players:              roster,
		Status:               AwaitingRoundCard,
		MaxRounds:            rules.MaxRounds,
		CurrentTurnPlayer:    roster[0].ID,
		PlayerGuesses:        make(map[string]Guess),
		Inventories:          make(map[string]Inventory),
		ActiveEffects:        make(map[string][]cards.Effect),
		CardsPlayedThisRound: make(map[string]bool),
		PunishmentsThisRound: make(map[string]map[string]bool),
		ConsumedRoundCards:   make(map[string]map[string]bool),
		UsedLocators:         make(map[string]bool),
		RoundWins:            make(map[string]int),
		CumulativeDistance:   make(map[string]float64),
		GuessesSubmitted:     make(map[string]int),
		StartedAt:            e.now(),
	}
	e.AssignInitialRoundCards()
	e.state.Message = fmt.Sprintf("%s starts the game by choosing a round card", e.displayName(roster[0].ID))

	return e, nil
}

// State returns the live state. Callers must not modify it.
func (e *GameEngine) State() *GameState {
	return e.state
}

// Rules returns the rules the session was created with.
func (e *GameEngine) Rules() *Rules {
	return e.rules
}

// Status returns the current status.
func (e *GameEngine) Status() Status {
	return e.state.Status
}

// IsGameOver reports whether the session has ended.
func (e *GameEngine) IsGameOver() bool {
	return e.state.Status == GameOver
}

// Clone returns an engine over a deep copy of the state. The copy shares the
// rules, deck and clock of e.
func (e *GameEngine) Clone() *GameEngine {
	return &GameEngine{
		state: e.state.clone(),
		rules: e.rules,
		deck:  e.deck,
		now:   e.now,
	}
}

// HasPlayer reports whether id is part of the session.
func (e *GameEngine) HasPlayer(id string) bool {
	for _, p := range e.state.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Inventory returns a copy of the player's inventory.
func (e *GameEngine) Inventory(playerID string) (Inventory, error) {
	if !e.HasPlayer(playerID) {
		return Inventory{}, ErrUnknownPlayer
	}
	inv := e.state.Inventories[playerID]
	return Inventory{
		RoundCards:  append([]cards.HeldRoundCard{}, inv.RoundCards...),
		ActionCards: append([]string{}, inv.ActionCards...),
	}, nil
}

// Snapshot builds the client-facing view of the session.
func (e *GameEngine) Snapshot() Snapshot {
	s := e.state
	info := make(map[string]PlayerInfo, len(s.Players))
	for _, p := range s.Players {
		inv := s.Inventories[p.ID]
		_, guessed := s.PlayerGuesses[p.ID]
		info[p.ID] = PlayerInfo{
			DisplayName:     p.DisplayName,
			RoundCardsLeft:  len(inv.RoundCards),
			ActionCardsLeft: len(inv.ActionCards),
			ActiveEffects:   publicEffects(s.ActiveEffects[p.ID]),
			RoundWins:       s.RoundWins[p.ID],
			HasGuessed:      guessed,
		}
	}

	snap := Snapshot{
		SessionID:                s.SessionID,
		Status:                   s.Status,
		CurrentRound:             s.CurrentRound,
		MaxRounds:                s.MaxRounds,
		CurrentScreen:            s.Status.Screen(),
		CurrentTurnPlayer:        s.CurrentTurnPlayer,
		Players:                  append([]Player{}, s.Players...),
		PlayerInfo:               info,
		LastRoundWinner:          s.LastRoundWinner,
		LastRoundWinningDistance: s.LastRoundWinningDistance,
		GameWinner:               s.GameWinner,
		Message:                  s.Message,
	}
	if s.ActiveRoundCard != nil {
		card := *s.ActiveRoundCard
		snap.ActiveRoundCard = &card
	}
	if s.GuessWindow != nil {
		window := *s.GuessWindow
		snap.GuessWindow = &window
	}
	return snap
}

// Summary returns the terminal summary. ok is false until the game is over.
func (e *GameEngine) Summary() (summary Summary, ok bool) {
	s := e.state
	if s.Status != GameOver {
		return Summary{}, false
	}

	results := make([]PlayerResult, 0, len(s.Players))
	for _, p := range s.Players {
		r := PlayerResult{
			PlayerID:         p.ID,
			DisplayName:      p.DisplayName,
			RoundWins:        s.RoundWins[p.ID],
			TotalDistance:    s.CumulativeDistance[p.ID],
			GuessesSubmitted: s.GuessesSubmitted[p.ID],
		}
		r.XP = r.GuessesSubmitted*XPPerGuess + r.RoundWins*XPPerRoundWin
		if p.ID == s.GameWinner {
			r.XP += XPPerGameWin
		}
		results = append(results, r)
	}

	return Summary{
		SessionID:            s.SessionID,
		Winner:               s.GameWinner,
		Players:              results,
		RoundsPlayed:         len(s.History),
		RoundCardStartAmount: s.RoundCardStartAmount,
		StartedAt:            s.StartedAt,
		CompletedAt:          s.CompletedAt,
	}, true
}

// publicEffects copies effects for the shared snapshot. A revealed continent
// is only shown to its owner through the inventory.
func publicEffects(effects []cards.Effect) []cards.Effect {
	out := make([]cards.Effect, len(effects))
	for i, eff := range effects {
		eff.Continent = ""
		out[i] = eff
	}
	return out
}

func (e *GameEngine) displayName(playerID string) string {
	for _, p := range e.state.Players {
		if p.ID == playerID {
			if p.DisplayName != "" {
				return p.DisplayName
			}
			break
		}
	}
	return playerID
}

func (e *GameEngine) checkActive() error {
	if e.state.Status == GameOver {
		return ErrGameAlreadyOver
	}
	return nil
}
