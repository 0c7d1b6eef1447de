package engine

import (
	"context"
	"time"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/geo"
)

// Status is the state machine position of a session.
type Status string

const (
	AwaitingRoundCard   Status = "AWAITING_ROUND_CARD"
	AwaitingActionCards Status = "AWAITING_ACTION_CARDS"
	AwaitingGuesses     Status = "AWAITING_GUESSES"
	RoundComplete       Status = "ROUND_COMPLETE"
	GameOver            Status = "GAME_OVER"
)

// Screen is the client screen that matches a status.
type Screen string

const (
	ScreenRoundCard  Screen = "ROUNDCARD"
	ScreenActionCard Screen = "ACTIONCARD"
	ScreenGuess      Screen = "GUESS"
	ScreenReveal     Screen = "REVEAL"
	ScreenGameOver   Screen = "GAMEOVER"
)

// Screen returns the client screen for s.
func (s Status) Screen() Screen {
	switch s {
	case AwaitingActionCards:
		return ScreenActionCard
	case AwaitingGuesses:
		return ScreenGuess
	case RoundComplete:
		return ScreenReveal
	case GameOver:
		return ScreenGameOver
	default:
		return ScreenRoundCard
	}
}

const (
	MinPlayers = 2
	MaxPlayers = 8

	XPPerGuess    = 10
	XPPerRoundWin = 20
	XPPerGameWin  = 50
)

// CoordinateSource supplies the target location for a new round. Locators in
// exclude have already been played in the session.
type CoordinateSource interface {
	NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error)
}

// Player is a resolved participant.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Inventory is what a player currently holds.
type Inventory struct {
	RoundCards  []cards.HeldRoundCard `json:"round_cards"`
	ActionCards []string              `json:"action_cards"`
}

// PlayerInfo is the client-facing view of a player. The counters are derived
// from the player's inventory.
type PlayerInfo struct {
	DisplayName     string         `json:"display_name"`
	RoundCardsLeft  int            `json:"round_cards_left"`
	ActionCardsLeft int            `json:"action_cards_left"`
	ActiveEffects   []cards.Effect `json:"active_effects"`
	RoundWins       int            `json:"round_wins"`
	HasGuessed      bool           `json:"has_guessed"`
}

// Guess is a player's scored guess for the current round.
type Guess struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Distance    float64        `json:"distance_meters"`
	Sequence    uint64         `json:"sequence"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// GuessWindow is the public guess screen configuration of a round.
type GuessWindow struct {
	Seconds   int     `json:"seconds"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ActionPlay records an action card played this round.
type ActionPlay struct {
	PlayerID string       `json:"player_id"`
	Effect   cards.Effect `json:"effect"`
}

// RoundResult is the outcome of one resolved round.
type RoundResult struct {
	Round           int                 `json:"round"`
	RoundCard       cards.RoundCardKind `json:"round_card"`
	Target          geo.Coordinate      `json:"target"`
	Winner          string              `json:"winner,omitempty"`
	WinningDistance float64             `json:"winning_distance_meters,omitempty"`
	Guesses         map[string]Guess    `json:"guesses"`
	Forced          bool                `json:"forced"`
}

// GameState is the complete state of one session.
type GameState struct {
	SessionID string   `json:"session_id"`
	Players   []Player `json:"players"`
	Status    Status   `json:"status"`
	Message   string   `json:"message"`

	CurrentRound      int    `json:"current_round"`
	MaxRounds         int    `json:"max_rounds"`
	CurrentTurnPlayer string `json:"current_turn_player"`

	ActiveRoundCardID string           `json:"active_round_card_id,omitempty"`
	ActiveRoundCard   *cards.RoundCard `json:"active_round_card,omitempty"`
	CurrentCoordinate *geo.Location    `json:"current_coordinate,omitempty"`
	GuessWindow       *GuessWindow     `json:"guess_window,omitempty"`
	RoundStartedAt    time.Time        `json:"round_started_at"`
	GuessingOpenedAt  time.Time        `json:"guessing_opened_at"`

	PlayerGuesses map[string]Guess          `json:"player_guesses"`
	Inventories   map[string]Inventory      `json:"inventories"`
	ActiveEffects map[string][]cards.Effect `json:"active_effects"`

	CardsPlayedThisRound map[string]bool            `json:"cards_played_this_round"`
	PunishmentsThisRound map[string]map[string]bool `json:"punishments_this_round"`
	ActionsThisRound     []ActionPlay               `json:"actions_this_round"`
	ConsumedRoundCards   map[string]map[string]bool `json:"consumed_round_cards"`
	UsedLocators         map[string]bool            `json:"used_locators"`
	GuessSequence        uint64                     `json:"guess_sequence"`

	RoundWins          map[string]int     `json:"round_wins"`
	CumulativeDistance map[string]float64 `json:"cumulative_distance"`
	GuessesSubmitted   map[string]int     `json:"guesses_submitted"`
	History            []RoundResult      `json:"history"`

	LastRoundWinner          string  `json:"last_round_winner,omitempty"`
	LastRoundWinningDistance float64 `json:"last_round_winning_distance,omitempty"`
	GameWinner               string  `json:"game_winner,omitempty"`

	RoundCardStartAmount int       `json:"round_card_start_amount"`
	StartedAt            time.Time `json:"started_at"`
	CompletedAt          time.Time `json:"completed_at,omitempty"`
}

// Snapshot is the serializable view pushed to clients after each transition.
type Snapshot struct {
	SessionID                string                `json:"session_id"`
	Status                   Status                `json:"status"`
	CurrentRound             int                   `json:"current_round"`
	MaxRounds                int                   `json:"max_rounds"`
	CurrentScreen            Screen                `json:"current_screen"`
	CurrentTurnPlayer        string                `json:"current_turn_player"`
	ActiveRoundCard          *cards.RoundCard      `json:"active_round_card,omitempty"`
	GuessWindow              *GuessWindow          `json:"guess_window,omitempty"`
	Players                  []Player              `json:"players"`
	PlayerInfo               map[string]PlayerInfo `json:"player_info"`
	LastRoundWinner          string                `json:"last_round_winner,omitempty"`
	LastRoundWinningDistance float64               `json:"last_round_winning_distance,omitempty"`
	GameWinner               string                `json:"game_winner,omitempty"`
	Message                  string                `json:"message"`
}

// PlayerResult is one player's line in the terminal summary.
type PlayerResult struct {
	PlayerID         string  `json:"player_id"`
	DisplayName      string  `json:"display_name"`
	RoundWins        int     `json:"round_wins"`
	TotalDistance    float64 `json:"total_distance_meters"`
	GuessesSubmitted int     `json:"guesses_submitted"`
	XP               int     `json:"xp"`
}

// Summary is emitted once a session reaches GAME_OVER.
type Summary struct {
	SessionID            string         `json:"session_id"`
	Winner               string         `json:"winner"`
	Players              []PlayerResult `json:"players"`
	RoundsPlayed         int            `json:"rounds_played"`
	RoundCardStartAmount int            `json:"round_card_start_amount"`
	StartedAt            time.Time      `json:"started_at"`
	CompletedAt          time.Time      `json:"completed_at"`
}
