package coords

import (
	"context"
	"sync"

	"github.com/wricardo/geocard/game/geo"
)

// FallbackLocations are served when the provider cannot find imagery.
var FallbackLocations = []geo.Location{
	{Coordinate: geo.Coordinate{Lat: 51.5074, Lng: -0.1278}, Locator: "fallback:london"},
	{Coordinate: geo.Coordinate{Lat: 40.7128, Lng: -74.0060}, Locator: "fallback:new-york"},
	{Coordinate: geo.Coordinate{Lat: 48.8566, Lng: 2.3522}, Locator: "fallback:paris"},
	{Coordinate: geo.Coordinate{Lat: 35.6762, Lng: 139.6503}, Locator: "fallback:tokyo"},
	{Coordinate: geo.Coordinate{Lat: -33.8688, Lng: 151.2093}, Locator: "fallback:sydney"},
}

// FallbackSource cycles through a fixed pool and never fails. Locations the
// session has already played are skipped until the pool runs dry, after which
// they are reused.
type FallbackSource struct {
	mu   sync.Mutex
	pool []geo.Location
	next int
}

func NewFallbackSource(pool ...geo.Location) *FallbackSource {
	if len(pool) == 0 {
		pool = FallbackLocations
	}
	return &FallbackSource{pool: pool}
}

func (f *FallbackSource) NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i < len(f.pool); i++ {
		loc := f.pool[(f.next+i)%len(f.pool)]
		if !exclude[loc.Locator] {
			f.next = (f.next + i + 1) % len(f.pool)
			return loc, nil
		}
	}
	loc := f.pool[f.next]
	f.next = (f.next + 1) % len(f.pool)
	return loc, nil
}
