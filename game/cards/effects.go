package cards

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wricardo/geocard/game/geo"
)

// Effect is the resolved outcome of playing an action card.
type Effect struct {
	ID              string         `json:"id"`
	Card            ActionCardKind `json:"card"`
	Source          string         `json:"source"`
	Target          string         `json:"target"`
	Continent       string         `json:"continent,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
}

// Play describes an action card being played.
type Play struct {
	Card   ActionCard
	Source string
	// Target is the punished player. Ignored for power-ups.
	Target string
	// RoundTarget is the current round's coordinate.
	RoundTarget geo.Coordinate
}

// Resolve computes the effect of a play.
func Resolve(p Play) (Effect, error) {
	effect := Effect{
		ID:     uuid.NewString(),
		Card:   p.Card.ID,
		Source: p.Source,
	}

	switch p.Card.ID {
	case RevealContinent:
		effect.Target = p.Source
		effect.Continent = geo.ContinentOf(p.RoundTarget)
	case BlurScreen:
		if p.Target == "" {
			return Effect{}, fmt.Errorf("card %q needs a target player", p.Card.ID)
		}
		effect.Target = p.Target
		effect.DurationSeconds = BlurDurationSeconds
	default:
		return Effect{}, fmt.Errorf("no effect defined for card %q", p.Card.ID)
	}

	return effect, nil
}
