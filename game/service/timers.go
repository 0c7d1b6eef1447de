package service

import (
	"sync"
	"time"
)

// Stopper is satisfied by *time.Timer.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the production value.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type pendingTimer struct {
	gen  uint64
	stop Stopper
}

// roundTimers keeps at most one pending timer per game. A nil *roundTimers
// schedules nothing. Callbacks must re-check game state themselves: a timer
// stopped after it fired still runs.
type roundTimers struct {
	mu      sync.Mutex
	after   AfterFunc
	gen     uint64
	pending map[string]pendingTimer
}

func newRoundTimers(after AfterFunc) *roundTimers {
	if after == nil {
		after = realAfterFunc
	}
	return &roundTimers{after: after, pending: make(map[string]pendingTimer)}
}

// schedule replaces the game's pending timer.
func (t *roundTimers) schedule(gameID string, d time.Duration, f func()) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[gameID]; ok {
		prev.stop.Stop()
	}
	t.gen++
	gen := t.gen
	stop := t.after(d, func() {
		t.mu.Lock()
		if cur, ok := t.pending[gameID]; ok && cur.gen == gen {
			delete(t.pending, gameID)
		}
		t.mu.Unlock()
		f()
	})
	t.pending[gameID] = pendingTimer{gen: gen, stop: stop}
}

func (t *roundTimers) cancel(gameID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[gameID]; ok {
		prev.stop.Stop()
		delete(t.pending, gameID)
	}
}

func (t *roundTimers) count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
