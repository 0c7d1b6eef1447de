// Package lobby keeps the ordered player rosters games are started from.
package lobby

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrEmptyRoster   = errors.New("lobby roster is empty")
)

// MemoryRoster stores lobby rosters in memory. Order is turn order.
type MemoryRoster struct {
	mu      sync.RWMutex
	lobbies map[string][]string
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{lobbies: make(map[string][]string)}
}

// Set replaces the roster of a lobby.
func (r *MemoryRoster) Set(lobbyID string, tokens []string) error {
	if strings.TrimSpace(lobbyID) == "" {
		return errors.New("lobby id is required")
	}
	if len(tokens) == 0 {
		return ErrEmptyRoster
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[lobbyID] = append([]string(nil), tokens...)
	return nil
}

// Remove forgets a lobby.
func (r *MemoryRoster) Remove(lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbies, lobbyID)
}

// RosterFor returns the ordered player tokens of a lobby.
func (r *MemoryRoster) RosterFor(ctx context.Context, lobbyID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokens, ok := r.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return append([]string(nil), tokens...), nil
}
