// Package coords supplies round target locations. Candidates are sampled
// mostly from areas with dense Street View coverage, checked against the
// Street View metadata API, and replaced by a fixed pool of well-known
// cities when the provider keeps failing.
package coords

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/wricardo/geocard/game/geo"
)

// Box is a latitude/longitude rectangle.
type Box struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// CoverageBoxes are metro areas where nearly every road has imagery.
var CoverageBoxes = []Box{
	{Name: "new-york", MinLat: 40.4774, MaxLat: 40.9176, MinLng: -74.2591, MaxLng: -73.7004},
	{Name: "los-angeles", MinLat: 34.0522, MaxLat: 34.3373, MinLng: -118.6682, MaxLng: -118.1553},
	{Name: "london", MinLat: 51.2868, MaxLat: 51.6919, MinLng: -0.5103, MaxLng: 0.3340},
	{Name: "paris", MinLat: 48.8156, MaxLat: 48.9022, MinLng: 2.2241, MaxLng: 2.4699},
	{Name: "tokyo", MinLat: 35.6528, MaxLat: 35.7840, MinLng: 139.6503, MaxLng: 139.8395},
}

// DefaultCoverageRatio is the share of samples drawn from CoverageBoxes.
const DefaultCoverageRatio = 0.7

// Sampler draws candidate coordinates. A CoverageRatio share comes from the
// coverage boxes and the rest from anywhere between latitudes -85 and 85.
type Sampler struct {
	mu            sync.Mutex
	rng           *rand.Rand
	boxes         []Box
	coverageRatio float64
}

// NewSampler returns a sampler over CoverageBoxes seeded from the runtime.
func NewSampler() *Sampler {
	return &Sampler{
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		boxes:         CoverageBoxes,
		coverageRatio: DefaultCoverageRatio,
	}
}

// NewSeededSampler returns a reproducible sampler. A ratio of 1 samples only
// the given boxes.
func NewSeededSampler(seed uint64, boxes []Box, ratio float64) *Sampler {
	if len(boxes) == 0 {
		boxes = CoverageBoxes
	}
	return &Sampler{
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		boxes:         boxes,
		coverageRatio: ratio,
	}
}

// Sample returns one candidate coordinate.
func (s *Sampler) Sample() geo.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.coverageRatio {
		b := s.boxes[s.rng.IntN(len(s.boxes))]
		return geo.Coordinate{
			Lat: b.MinLat + s.rng.Float64()*(b.MaxLat-b.MinLat),
			Lng: b.MinLng + s.rng.Float64()*(b.MaxLng-b.MinLng),
		}
	}
	return geo.Coordinate{
		Lat: -85 + s.rng.Float64()*170,
		Lng: -180 + s.rng.Float64()*360,
	}
}

// RandomSource serves sampled coordinates without checking imagery. It is
// meant for development without a Street View key.
type RandomSource struct {
	Sampler *Sampler
}

func NewRandomSource(sampler *Sampler) *RandomSource {
	if sampler == nil {
		sampler = NewSampler()
	}
	return &RandomSource{Sampler: sampler}
}

func (r *RandomSource) NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error) {
	if err := ctx.Err(); err != nil {
		return geo.Location{}, err
	}
	c := r.Sampler.Sample()
	return geo.Location{Coordinate: c, Locator: fmt.Sprintf("random:%.5f,%.5f", c.Lat, c.Lng)}, nil
}
