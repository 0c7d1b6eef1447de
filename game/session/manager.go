package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
)

var (
	ErrSessionNotFound      = fmt.Errorf("session %w", engine.ErrNotFound)
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = fmt.Errorf("%w: invalid session ID", engine.ErrInvalidArgument)
)

const maxIDAttempts = 16

// entry guards one session. The manager lock protects the map; the entry lock
// protects the session it holds.
type entry struct {
	mu      sync.Mutex
	session *service.Session
	removed bool
}

// Manager handles game session lifecycle
type Manager struct {
	sessions   map[string]*entry
	mu         sync.RWMutex
	engineOpts []engine.Option
	now        func() time.Time
}

// NewManager creates a new session manager. The engine options are applied to
// every session it creates.
func NewManager(engineOpts ...engine.Option) *Manager {
	return &Manager{
		sessions:   make(map[string]*entry),
		engineOpts: engineOpts,
		now:        time.Now,
	}
}

// Create starts a new session with the given players. An empty id gets a
// generated one. Ids are case-insensitive.
func (m *Manager) Create(id string, players []engine.Player, rules *engine.Rules) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		generated, err := m.generateUniqueID()
		if err != nil {
			return nil, err
		}
		id = generated
	}
	if strings.ContainsAny(id, " /?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; exists {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(key, players, rules, m.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := m.now()
	session := &service.Session{
		ID:             key,
		Engine:         eng,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key] = &entry{session: session}

	return snapshot(session), nil
}

// Get returns a copy of the session. Changes to the copy are not saved.
func (m *Manager) Get(id string) (*service.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, ErrSessionNotFound
	}
	return snapshot(e.session), nil
}

// WithSession runs fn with exclusive access to the session. fn works on a
// private copy that replaces the stored session only when fn returns nil, so
// a failed operation never leaves partial changes behind.
func (m *Manager) WithSession(id string, fn func(*service.Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrSessionNotFound
	}

	work := snapshot(e.session)
	if err := fn(work); err != nil {
		return err
	}
	work.ID = e.session.ID
	work.CreatedAt = e.session.CreatedAt
	work.LastAccessedAt = m.now()
	e.session = work

	return nil
}

// List returns copies of all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	result := make([]*service.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			result = append(result, snapshot(e.session))
		}
		e.mu.Unlock()
	}

	return result
}

// Delete removes a session. An operation already running on it finishes first.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	key := strings.ToLower(id)
	e, exists := m.sessions[key]
	if exists {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	return nil
}

// Sweep removes every session for which remove returns true. Sessions busy
// with an operation are skipped and looked at again on the next sweep.
// It returns the removed session ids.
func (m *Manager) Sweep(remove func(*service.Session) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for key, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if remove(e.session) {
			e.removed = true
			delete(m.sessions, key)
			removed = append(removed, key)
		}
		e.mu.Unlock()
	}

	return removed
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	return len(m.Sweep(func(s *service.Session) bool {
		return s.LastAccessedAt.Before(cutoff)
	}))
}

// CleanupFinishedSessions removes games that ended more than delay ago.
func (m *Manager) CleanupFinishedSessions(delay time.Duration) int {
	cutoff := m.now().Add(-delay)
	return len(m.Sweep(func(s *service.Session) bool {
		st := s.Engine.State()
		return st.Status == engine.GameOver && st.CompletedAt.Before(cutoff)
	}))
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// generateUniqueID returns a random 6-character id not in use. Callers hold m.mu.
func (m *Manager) generateUniqueID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		bytes := make([]byte, 3)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		id := hex.EncodeToString(bytes)
		if _, exists := m.sessions[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate session id: no free id after %d attempts", maxIDAttempts)
}

func snapshot(s *service.Session) *service.Session {
	c := *s
	c.Engine = s.Engine.Clone()
	return &c
}
