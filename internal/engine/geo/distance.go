// Package geo provides great-circle distance helpers used by match scoring.
package geo

import (
	"math"

	"beautymatch/internal/models"
)

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// ValidCoordinate reports whether a coordinate lies in the WGS84 domain.
func ValidCoordinate(c models.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Box is a latitude/longitude bounding box.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a box that contains every point within radiusKm of
// center. It overshoots at the corners, so callers still need a precise
// distance cut on the results. Near the poles the longitude span degenerates
// to the full circle.
func BoundingBox(center models.Coordinate, radiusKm float64) Box {
	latDelta := radiusKm / earthRadiusKm * 180 / math.Pi

	lonDelta := 180.0
	if cos := math.Cos(center.Latitude * math.Pi / 180); cos > 1e-6 {
		lonDelta = latDelta / cos
	}

	return Box{
		MinLat: math.Max(center.Latitude-latDelta, -90),
		MaxLat: math.Min(center.Latitude+latDelta, 90),
		MinLon: math.Max(center.Longitude-lonDelta, -180),
		MaxLon: math.Min(center.Longitude+lonDelta, 180),
	}
}
