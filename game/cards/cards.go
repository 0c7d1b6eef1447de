// Package cards defines the fixed round-card and action-card catalogs and
// the effect each action card produces when played.
//
// Both catalogs are read-only after package initialization and are safe for
// concurrent use. Per-player inventories live in the engine's session state.
package cards

import (
	"fmt"

	"github.com/google/uuid"
)

// RoundCardKind identifies a round card variant.
type RoundCardKind string

const (
	World RoundCardKind = "world"
	Flash RoundCardKind = "flash"
)

// ActionCardKind identifies an action card variant. The string value is the
// catalog id clients send when playing the card.
type ActionCardKind string

const (
	RevealContinent ActionCardKind = "reveal"
	BlurScreen      ActionCardKind = "punish"
)

// ActionType groups action cards by who they affect.
type ActionType string

const (
	PowerUp    ActionType = "powerup"
	Punishment ActionType = "punishment"
)

const (
	GuessPrecise      = "Precise"
	StreetViewDefault = "Standard"
	MapStandard       = "Standard"

	// BlurDurationSeconds is how long a blur-screen punishment lasts.
	BlurDurationSeconds = 15
)

// RoundModifiers are the per-round rules a round card imposes.
type RoundModifiers struct {
	GuessType   string `json:"guess_type"`
	StreetView  string `json:"street_view"`
	TimeSeconds int    `json:"time_seconds"`
	MapType     string `json:"map_type"`
}

// RoundCard is a catalog entry for a round card.
type RoundCard struct {
	Kind        RoundCardKind  `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Modifiers   RoundModifiers `json:"modifiers"`
}

// HeldRoundCard is a round card instance in a player's inventory.
type HeldRoundCard struct {
	ID   string        `json:"id"`
	Kind RoundCardKind `json:"kind"`
}

// ActionCard is a catalog entry for an action card.
type ActionCard struct {
	ID          ActionCardKind `json:"id"`
	Type        ActionType     `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

// NeedsTarget reports whether the card must be aimed at another player.
func (c ActionCard) NeedsTarget() bool {
	return c.Type == Punishment
}

var roundCatalog = []RoundCard{
	{
		Kind:        World,
		Title:       "World",
		Description: "Full world map, standard timer.",
		Modifiers: RoundModifiers{
			GuessType:   GuessPrecise,
			StreetView:  StreetViewDefault,
			TimeSeconds: 60,
			MapType:     MapStandard,
		},
	},
	{
		Kind:        Flash,
		Title:       "Flash",
		Description: "Same coverage as World with half the time.",
		Modifiers: RoundModifiers{
			GuessType:   GuessPrecise,
			StreetView:  StreetViewDefault,
			TimeSeconds: 30,
			MapType:     MapStandard,
		},
	},
}

var actionCatalog = []ActionCard{
	{
		ID:          RevealContinent,
		Type:        PowerUp,
		Title:       "Continent Reveal",
		Description: "Reveals the continent of the current target.",
	},
	{
		ID:          BlurScreen,
		Type:        Punishment,
		Title:       "Bad Sight",
		Description: "Blurs another player's screen for 15 seconds.",
	},
}

// RoundCards returns the round card catalog in assignment order.
func RoundCards() []RoundCard {
	out := make([]RoundCard, len(roundCatalog))
	copy(out, roundCatalog)
	return out
}

// ActionCards returns the action card catalog.
func ActionCards() []ActionCard {
	out := make([]ActionCard, len(actionCatalog))
	copy(out, actionCatalog)
	return out
}

// LookupRoundCard returns the catalog entry for kind.
func LookupRoundCard(kind RoundCardKind) (RoundCard, bool) {
	for _, c := range roundCatalog {
		if c.Kind == kind {
			return c, true
		}
	}
	return RoundCard{}, false
}

// LookupActionCard returns the catalog entry for id.
func LookupActionCard(id string) (ActionCard, bool) {
	for _, c := range actionCatalog {
		if string(c.ID) == id {
			return c, true
		}
	}
	return ActionCard{}, false
}

var roundCardNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("geocard:round-card"))

// RoundCardID derives the id of a player's round card. The id depends only on
// the session, the player and the card kind, so re-issuing cards for the same
// inputs yields the same ids.
func RoundCardID(sessionID, playerID string, kind RoundCardKind) string {
	name := fmt.Sprintf("%s/%s/%s", sessionID, playerID, kind)
	return uuid.NewSHA1(roundCardNamespace, []byte(name)).String()
}
