package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	DefaultMaxRounds           = 5
	DefaultActionWindowSeconds = 10
	DefaultGuessGraceSeconds   = 3

	MinRounds            = 1
	MaxRoundsLimit       = 20
	MaxActionWindowSecs  = 60
	MaxGuessGraceSeconds = 30
)

// Rules are the tunable limits of a game. Presets are stored as JSON.
type Rules struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxRounds   int    `json:"max_rounds"`
	// ActionWindowSeconds is how long the action card phase stays open when
	// the server runs round timers. Zero leaves it open until the turn owner
	// starts guessing.
	ActionWindowSeconds int `json:"action_window_seconds"`
	// GuessGraceSeconds is added to the round card's timer before unanswered
	// guesses are force-resolved.
	GuessGraceSeconds int `json:"guess_grace_seconds"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() *Rules {
	return &Rules{
		Name:                "default",
		Description:         "Five rounds, two round cards each",
		MaxRounds:           DefaultMaxRounds,
		ActionWindowSeconds: DefaultActionWindowSeconds,
		GuessGraceSeconds:   DefaultGuessGraceSeconds,
	}
}

// ValidateRules checks a rule set for correctness.
func ValidateRules(rules *Rules) error {
	if rules == nil {
		return fmt.Errorf("rules validation: rules are required")
	}
	if rules.Name == "" {
		return fmt.Errorf("rules validation: name is required")
	}
	if rules.Description == "" {
		return fmt.Errorf("rules validation: description is required")
	}
	if rules.MaxRounds < MinRounds || rules.MaxRounds > MaxRoundsLimit {
		return fmt.Errorf("rules validation: max_rounds must be between %d and %d, got %d", MinRounds, MaxRoundsLimit, rules.MaxRounds)
	}
	if rules.ActionWindowSeconds < 0 || rules.ActionWindowSeconds > MaxActionWindowSecs {
		return fmt.Errorf("rules validation: action_window_seconds must be between 0 and %d, got %d", MaxActionWindowSecs, rules.ActionWindowSeconds)
	}
	if rules.GuessGraceSeconds < 0 || rules.GuessGraceSeconds > MaxGuessGraceSeconds {
		return fmt.Errorf("rules validation: guess_grace_seconds must be between 0 and %d, got %d", MaxGuessGraceSeconds, rules.GuessGraceSeconds)
	}
	return nil
}

// LoadRules reads and validates a rules file.
func LoadRules(filename string) (*Rules, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file '%s': %v", filename, err)
	}

	if err := ValidateRules(&rules); err != nil {
		return nil, err
	}

	return &rules, nil
}
