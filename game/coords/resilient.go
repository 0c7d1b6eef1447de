package coords

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/platform/log"
)

// DefaultMaxAttempts bounds provider lookups per round.
const DefaultMaxAttempts = 60

// ResilientSource retries a primary source with exponential backoff and
// serves from the fallback once attempts run out or the primary fails
// permanently. Only a cancelled context makes it fail.
type ResilientSource struct {
	Primary     engine.CoordinateSource
	Fallback    engine.CoordinateSource
	MaxAttempts uint
	// MaxElapsed caps the total time spent on the primary.
	MaxElapsed time.Duration
	// NewBackOff overrides the retry schedule, mostly for tests.
	NewBackOff func() backoff.BackOff
}

func NewResilientSource(primary engine.CoordinateSource) *ResilientSource {
	return &ResilientSource{
		Primary:     primary,
		Fallback:    NewFallbackSource(),
		MaxAttempts: DefaultMaxAttempts,
		MaxElapsed:  20 * time.Second,
	}
}

func (r *ResilientSource) NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error) {
	b := backoff.BackOff(nil)
	if r.NewBackOff != nil {
		b = r.NewBackOff()
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 50 * time.Millisecond
		eb.MaxInterval = time.Second
		b = eb
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if r.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(r.MaxAttempts))
	}
	if r.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(r.MaxElapsed))
	}

	attempts := 0
	loc, err := backoff.Retry(ctx, func() (geo.Location, error) {
		attempts++
		return r.Primary.NextCoordinate(ctx, sessionID, exclude)
	}, opts...)
	if err == nil {
		log.Debug("session %s: location %s found after %d attempts", sessionID, loc.Locator, attempts)
		return loc, nil
	}
	if ctx.Err() != nil {
		return geo.Location{}, ctx.Err()
	}

	log.Warn("session %s: location provider failed after %d attempts, using fallback: %v", sessionID, attempts, err)
	fallback := r.Fallback
	if fallback == nil {
		fallback = NewFallbackSource()
	}
	return fallback.NextCoordinate(ctx, sessionID, exclude)
}
