package cards

import (
	"math/rand/v2"
	"sync"
)

// Deck draws action cards from the catalog.
type Deck struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDeck returns a deck drawing from the global random source.
func NewDeck() *Deck {
	return &Deck{}
}

// NewSeededDeck returns a deck with a reproducible draw sequence.
func NewSeededDeck(seed uint64) *Deck {
	return &Deck{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// DrawActionCard returns one catalog entry, uniformly at random.
func (d *Deck) DrawActionCard() ActionCard {
	return actionCatalog[d.intN(len(actionCatalog))]
}

func (d *Deck) intN(n int) int {
	if d == nil || d.rng == nil {
		return rand.IntN(n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}
