package bot

import (
	"math/rand/v2"
	"sync"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/coords"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/game/service"
)

// Strategy picks a bot's moves from what the bot can see.
type Strategy interface {
	// Guess returns where to guess given the bot's inventory.
	Guess(inv *service.InventoryView) geo.Coordinate
	// Action returns the action card to play and its target, or "" to pass.
	Action(inv *service.InventoryView, opponents []string) (cardID, target string)
}

// continentAnchors are rough centers of each continent's landmass.
var continentAnchors = map[string]geo.Coordinate{
	geo.NorthAmerica: {Lat: 40, Lng: -100},
	geo.SouthAmerica: {Lat: -15, Lng: -60},
	geo.Europe:       {Lat: 50, Lng: 10},
	geo.Africa:       {Lat: 5, Lng: 20},
	geo.Asia:         {Lat: 35, Lng: 100},
	geo.Oceania:      {Lat: -25, Lng: 135},
	geo.Antarctica:   {Lat: -80, Lng: 0},
}

// ContinentStrategy guesses near a revealed continent and otherwise samples
// the same distribution the server draws targets from. It plays reveal
// whenever it holds one and punishes a random opponent otherwise.
type ContinentStrategy struct {
	mu      sync.Mutex
	sampler *coords.Sampler
	rng     *rand.Rand
}

func NewContinentStrategy(seed uint64) *ContinentStrategy {
	return &ContinentStrategy{
		sampler: coords.NewSeededSampler(seed, coords.CoverageBoxes, coords.DefaultCoverageRatio),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *ContinentStrategy) Guess(inv *service.InventoryView) geo.Coordinate {
	for _, e := range inv.ActiveEffects {
		if anchor, ok := continentAnchors[e.Continent]; ok {
			return anchor
		}
	}
	return s.sampler.Sample()
}

func (s *ContinentStrategy) Action(inv *service.InventoryView, opponents []string) (string, string) {
	if !inv.CanPlayAction {
		return "", ""
	}
	var punish bool
	for _, c := range inv.ActionCards {
		switch c.ID {
		case cards.RevealContinent:
			return string(c.ID), ""
		case cards.BlurScreen:
			punish = true
		}
	}
	if !punish || len(opponents) == 0 {
		return "", ""
	}

	s.mu.Lock()
	target := opponents[s.rng.IntN(len(opponents))]
	s.mu.Unlock()
	return string(cards.BlurScreen), target
}
