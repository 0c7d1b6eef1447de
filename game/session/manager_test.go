package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/game/service"
)

type fixedSource struct{}

func (fixedSource) NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error) {
	return geo.Location{Coordinate: geo.Coordinate{Lat: 45, Lng: 45}}, nil
}

func testPlayers() []engine.Player {
	return []engine.Player{{ID: "p1", DisplayName: "Ada"}, {ID: "p2", DisplayName: "Lin"}}
}

func TestManagerCreate(t *testing.T) {
	m := NewManager()

	t.Run("generated id", func(t *testing.T) {
		s, err := m.Create("", testPlayers(), nil)
		require.NoError(t, err)
		assert.Len(t, s.ID, 6)
		assert.Equal(t, s.ID, s.Engine.State().SessionID)
		assert.False(t, s.CreatedAt.IsZero())
	})

	t.Run("explicit id", func(t *testing.T) {
		s, err := m.Create("Game1", testPlayers(), nil)
		require.NoError(t, err)
		assert.Equal(t, "game1", s.ID)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := m.Create("GAME1", testPlayers(), nil)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := m.Create("a/b", testPlayers(), nil)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid roster", func(t *testing.T) {
		_, err := m.Create("solo", testPlayers()[:1], nil)
		assert.ErrorIs(t, err, engine.ErrInvalidArgument)
		_, err = m.Get("solo")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	assert.Equal(t, 2, m.Count())
}

func TestManagerGetReturnsCopy(t *testing.T) {
	m := NewManager()
	_, err := m.Create("g1", testPlayers(), nil)
	require.NoError(t, err)

	s, err := m.Get("G1")
	require.NoError(t, err)
	s.Engine.ConsumeRoundCard("p1", cards.RoundCardID("g1", "p1", cards.World))

	again, err := m.Get("g1")
	require.NoError(t, err)
	assert.Len(t, again.Engine.State().Inventories["p1"].RoundCards, 2)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWithSession(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		m := NewManager()
		_, err := m.Create("g1", testPlayers(), nil)
		require.NoError(t, err)

		err = m.WithSession("g1", func(s *service.Session) error {
			return s.Engine.SelectRoundCard(ctx, fixedSource{}, "p1", cards.RoundCardID("g1", "p1", cards.World))
		})
		require.NoError(t, err)

		s, _ := m.Get("g1")
		assert.Equal(t, engine.AwaitingActionCards, s.Engine.Status())
		assert.Equal(t, 1, s.Engine.State().CurrentRound)
	})

	t.Run("discards partial changes on error", func(t *testing.T) {
		m := NewManager()
		_, err := m.Create("g1", testPlayers(), nil)
		require.NoError(t, err)
		boom := errors.New("boom")

		err = m.WithSession("g1", func(s *service.Session) error {
			s.Engine.ConsumeRoundCard("p1", cards.RoundCardID("g1", "p1", cards.World))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		s, _ := m.Get("g1")
		assert.Len(t, s.Engine.State().Inventories["p1"].RoundCards, 2)
	})

	t.Run("updates last access", func(t *testing.T) {
		m := NewManager()
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }
		_, err := m.Create("g1", testPlayers(), nil)
		require.NoError(t, err)

		now = now.Add(time.Minute)
		require.NoError(t, m.WithSession("g1", func(*service.Session) error { return nil }))

		s, _ := m.Get("g1")
		assert.Equal(t, now, s.LastAccessedAt)
		assert.Equal(t, now.Add(-time.Minute), s.CreatedAt)
	})

	t.Run("unknown session", func(t *testing.T) {
		m := NewManager()
		called := false
		err := m.WithSession("nope", func(*service.Session) error { called = true; return nil })
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.False(t, called)
	})

	t.Run("serializes one session", func(t *testing.T) {
		m := NewManager()
		_, err := m.Create("g1", testPlayers(), nil)
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			active  int
			overlap bool
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.WithSession("g1", func(*service.Session) error {
					mu.Lock()
					active++
					if active > 1 {
						overlap = true
					}
					mu.Unlock()

					time.Sleep(time.Millisecond)

					mu.Lock()
					active--
					mu.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()
		assert.False(t, overlap)
	})

	t.Run("different sessions run in parallel", func(t *testing.T) {
		m := NewManager()
		_, err := m.Create("a", testPlayers(), nil)
		require.NoError(t, err)
		_, err = m.Create("b", testPlayers(), nil)
		require.NoError(t, err)

		entered := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- m.WithSession("a", func(*service.Session) error {
				close(entered)
				<-release
				return nil
			})
		}()
		<-entered

		require.NoError(t, m.WithSession("b", func(*service.Session) error { return nil }))
		close(release)
		require.NoError(t, <-done)
	})
}

func TestManagerDelete(t *testing.T) {
	m := NewManager()
	_, err := m.Create("g1", testPlayers(), nil)
	require.NoError(t, err)

	require.NoError(t, m.Delete("G1"))
	assert.ErrorIs(t, m.Delete("g1"), ErrSessionNotFound)
	_, err = m.Get("g1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, m.List())
}

func TestManagerList(t *testing.T) {
	m := NewManager()
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Create(id, testPlayers(), nil)
		require.NoError(t, err)
	}

	ids := []string{}
	for _, s := range m.List() {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := NewManager()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err := m.Create("old", testPlayers(), nil)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = m.Create("fresh", testPlayers(), nil)
	require.NoError(t, err)

	removed := m.CleanupExpiredSessions(time.Hour)
	assert.Equal(t, 1, removed)
	_, err = m.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("fresh")
	assert.NoError(t, err)
}

func TestCleanupFinishedSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(engine.WithClock(clock))
	m.now = clock

	rules := engine.DefaultRules()
	rules.MaxRounds = 1
	_, err := m.Create("done", testPlayers(), rules)
	require.NoError(t, err)
	_, err = m.Create("running", testPlayers(), rules)
	require.NoError(t, err)

	err = m.WithSession("done", func(s *service.Session) error {
		e := s.Engine
		if err := e.SelectRoundCard(context.Background(), fixedSource{}, "p1", cards.RoundCardID("done", "p1", cards.World)); err != nil {
			return err
		}
		if err := e.StartGuessing("p1"); err != nil {
			return err
		}
		if _, err := e.ForceResolve(); err != nil {
			return err
		}
		return e.AdvanceRound()
	})
	require.NoError(t, err)

	assert.Equal(t, 0, m.CleanupFinishedSessions(time.Minute))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.CleanupFinishedSessions(time.Minute))
	_, err = m.Get("done")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, m.Count())
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	m := NewManager()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, err := m.Create("", testPlayers(), nil)
		require.NoError(t, err)
		require.False(t, seen[s.ID], s.ID)
		assert.Equal(t, strings.ToLower(s.ID), s.ID)
		seen[s.ID] = true
	}
}
