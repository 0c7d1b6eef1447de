package service

import (
	"time"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/engine"
)

// CreateGameRequest names the players either by lobby or by token list.
type CreateGameRequest struct {
	// GameID is optional; an empty id is generated.
	GameID string `json:"game_id,omitempty"`
	// LobbyID takes precedence over PlayerTokens when set.
	LobbyID      string   `json:"lobby_id,omitempty"`
	PlayerTokens []string `json:"player_tokens,omitempty"`
	// Preset is a rule preset id; empty uses the default rules.
	Preset string `json:"preset,omitempty"`
}

// GameInfo provides information about a game session
type GameInfo struct {
	ID             string          `json:"id"`
	Rules          *engine.Rules   `json:"rules"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Snapshot       engine.Snapshot `json:"snapshot"`
	// Summary is set once the game is over.
	Summary *engine.Summary `json:"summary,omitempty"`
}

// InventoryView is what one player sees of their own hand.
type InventoryView struct {
	GameID        string                `json:"game_id"`
	PlayerID      string                `json:"player_id"`
	RoundCards    []cards.HeldRoundCard `json:"round_cards"`
	ActionCards   []cards.ActionCard    `json:"action_cards"`
	ActiveEffects []cards.Effect        `json:"active_effects"`
	HasGuessed    bool                  `json:"has_guessed"`
	// CanPlayAction is true while the action window is open and the player
	// has not played a card this round.
	CanPlayAction bool `json:"can_play_action"`
	IsTurnPlayer  bool `json:"is_turn_player"`
}

// ActionResult contains the outcome of playing an action card
type ActionResult struct {
	Effect   cards.Effect    `json:"effect"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// GuessResult contains the scored guess. Outcome is set when the guess was
// the last one missing and the round resolved.
type GuessResult struct {
	Guess    engine.Guess    `json:"guess"`
	Outcome  *RoundOutcome   `json:"outcome,omitempty"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// RoundOutcome is a resolved round.
type RoundOutcome struct {
	Result   engine.RoundResult `json:"result"`
	Snapshot engine.Snapshot    `json:"snapshot"`
}

// PresetInfo provides information about a rule preset
type PresetInfo struct {
	Filename            string `json:"filename,omitempty"`
	PresetID            string `json:"preset_id"` // The identifier to use for game creation
	Name                string `json:"name"`
	Description         string `json:"description"`
	MaxRounds           int    `json:"max_rounds"`
	ActionWindowSeconds int    `json:"action_window_seconds"`
	GuessGraceSeconds   int    `json:"guess_grace_seconds"`
}

// Event names passed to Notifier.PublishEvent.
const (
	EventGameCreated   = "game_created"
	EventRoundStarted  = "round_started"
	EventActionPlayed  = "action_played"
	EventGuessingOpen  = "guessing_open"
	EventGuessReceived = "guess_received"
	EventRoundResolved = "round_resolved"
	EventGameOver      = "game_over"
	EventGameDeleted   = "game_deleted"
)
