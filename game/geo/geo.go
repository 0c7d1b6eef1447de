// Package geo holds the coordinate math used for scoring guesses.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// MaxDistanceMeters is half the great-circle circumference, the largest
// distance two points can be apart.
const MaxDistanceMeters = math.Pi * EarthRadiusMeters

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a playable coordinate plus the provider locator it came from
// (for example a Street View panorama id). Locator may be empty.
type Location struct {
	Coordinate
	Locator string `json:"locator,omitempty"`
}

// Validate checks that the coordinate is within the valid degree ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return fmt.Errorf("coordinate is not a number")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", c.Lat, c.Lng)
}

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h slightly past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
