// Package archive stores the summaries of finished games.
//
// Live sessions stay in memory; only the final Summary of a game is written
// out, once, when it reaches GAME_OVER. Session ids are reused once a game is
// cleaned up, so a summary is keyed by its session id and start time; Get
// returns the latest game played under an id. Open picks a backend from a URL:
//
//	memory://                     process memory (default)
//	file:///var/lib/geocard       one JSON file per game
//	sqlite:///var/lib/geocard.db  SQLite database
//	postgres://user:pw@host/db    PostgreSQL
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/geocard/game/engine"
)

var ErrNotFound = errors.New("archived game not found")

// Store is an archive of finished games.
type Store interface {
	// Archive stores the summary. Archiving the same game again replaces it;
	// a different game with the same session id is kept alongside.
	Archive(ctx context.Context, summary engine.Summary) error
	// Get returns the most recently completed game with the session id.
	Get(ctx context.Context, sessionID string) (*engine.Summary, error)
	// List returns the most recently completed games first.
	List(ctx context.Context, limit int) ([]engine.Summary, error)
	Close(ctx context.Context) error
}

// Open returns the store named by rawURL.
func Open(ctx context.Context, rawURL string) (Store, error) {
	scheme, rest, found := strings.Cut(rawURL, "://")
	if rawURL == "" {
		scheme, found = "memory", true
	}
	if !found {
		return nil, fmt.Errorf("archive url %q: missing scheme", rawURL)
	}

	switch scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(rest)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(ctx, rest)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, rawURL)
	default:
		return nil, fmt.Errorf("archive url %q: unsupported scheme %q", rawURL, scheme)
	}
}

func validate(summary engine.Summary) error {
	if summary.SessionID == "" {
		return fmt.Errorf("archive: summary has no session id")
	}
	if summary.CompletedAt.IsZero() {
		return fmt.Errorf("archive: game %s is not finished", summary.SessionID)
	}
	return nil
}

func newestFirst(summaries []engine.Summary, limit int) []engine.Summary {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CompletedAt.After(summaries[j].CompletedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// MemoryStore keeps summaries for the life of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	summaries map[string][]engine.Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{summaries: make(map[string][]engine.Summary)}
}

func (m *MemoryStore) Archive(ctx context.Context, summary engine.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	summary.Players = append([]engine.PlayerResult(nil), summary.Players...)

	games := m.summaries[summary.SessionID]
	for i := range games {
		if games[i].StartedAt.Equal(summary.StartedAt) {
			games[i] = summary
			return nil
		}
	}
	m.summaries[summary.SessionID] = append(games, summary)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*engine.Summary, error) {
	m.mu.RLock()
	games := append([]engine.Summary(nil), m.summaries[sessionID]...)
	m.mu.RUnlock()
	if len(games) == 0 {
		return nil, ErrNotFound
	}
	s := newestFirst(games, 1)[0]
	s.Players = append([]engine.PlayerResult(nil), s.Players...)
	return &s, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]engine.Summary, error) {
	m.mu.RLock()
	out := make([]engine.Summary, 0, len(m.summaries))
	for _, games := range m.summaries {
		out = append(out, games...)
	}
	m.mu.RUnlock()
	return newestFirst(out, limit), nil
}

func (m *MemoryStore) Close(ctx context.Context) error { return nil }
