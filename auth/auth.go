// Package auth resolves opaque player tokens to player identities.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the stable identity behind a player token.
type Identity struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
}

// Resolver resolves a token to an identity or fails with ErrUnauthorized.
type Resolver interface {
	ResolvePlayer(ctx context.Context, token string) (Identity, error)
}

// MemoryResolver resolves tokens registered up front.
type MemoryResolver struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{tokens: make(map[string]Identity)}
}

// Register maps token to id.
func (r *MemoryResolver) Register(token string, id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = id
}

func (r *MemoryResolver) ResolvePlayer(ctx context.Context, token string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tokens[strings.TrimSpace(token)]
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}
