package geo

import "math"

// Continent names returned by ContinentOf.
const (
	NorthAmerica = "North America"
	SouthAmerica = "South America"
	Europe       = "Europe"
	Africa       = "Africa"
	Asia         = "Asia"
	Oceania      = "Oceania"
	Antarctica   = "Antarctica"
	Unknown      = "Unknown"
)

// box is a half-open latitude/longitude rectangle: [MinLat, MaxLat) x [MinLng, MaxLng).
type box struct {
	continent      string
	minLat, maxLat float64
	minLng, maxLng float64
}

func (b box) contains(c Coordinate) bool {
	return c.Lat >= b.minLat && c.Lat < b.maxLat && c.Lng >= b.minLng && c.Lng < b.maxLng
}

// continentBoxes is a coarse static map. Boxes of different continents may
// overlap; a point inside more than one of them is ambiguous.
var continentBoxes = []box{
	{NorthAmerica, 15, 84, -168, -52},
	{NorthAmerica, 59, 71, -52, -25},
	{NorthAmerica, 71, 84, -52, -10},
	{NorthAmerica, 7, 15, -92, -77},
	{SouthAmerica, -56, 12, -82, -34},
	{Europe, 36, 71, -25, 40},
	{Africa, -35, 12, -18, 52},
	{Africa, 12, 37, -18, 35},
	{Asia, 12, 77, 40, 180},
	{Asia, 12, 36, 35, 40},
	{Asia, 5, 12, 60, 180},
	{Asia, -11, 5, 95, 141},
	{Oceania, -48, -11, 110, 180},
	{Oceania, -11, 0, 141, 180},
	{Antarctica, -90, -60, -180, 180},
}

// ContinentOf classifies a coordinate by static bounding boxes.
//
// It returns Unknown for points outside every box, for points that fall into
// boxes of two different continents, for (0,0), and for points on the
// antimeridian.
func ContinentOf(c Coordinate) string {
	if c.Validate() != nil {
		return Unknown
	}
	if c.Lat == 0 && c.Lng == 0 {
		return Unknown
	}
	if math.Abs(c.Lng) >= 180 {
		return Unknown
	}

	found := ""
	for _, b := range continentBoxes {
		if !b.contains(c) {
			continue
		}
		if found != "" && found != b.continent {
			return Unknown
		}
		found = b.continent
	}
	if found == "" {
		return Unknown
	}
	return found
}
