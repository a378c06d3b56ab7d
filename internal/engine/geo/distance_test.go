package geo

import (
	"testing"

	"beautymatch/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name      string
		a, b      models.Coordinate
		expected  float64
		tolerance float64
	}{
		{
			name:      "identical points",
			a:         models.Coordinate{Latitude: 40.0, Longitude: -73.0},
			b:         models.Coordinate{Latitude: 40.0, Longitude: -73.0},
			expected:  0,
			tolerance: 0.001,
		},
		{
			name:      "new york to los angeles",
			a:         models.Coordinate{Latitude: 40.7128, Longitude: -74.0060},
			b:         models.Coordinate{Latitude: 34.0522, Longitude: -118.2437},
			expected:  3936,
			tolerance: 20,
		},
		{
			name:      "short hop within a city",
			a:         models.Coordinate{Latitude: 40.7128, Longitude: -74.0060},
			b:         models.Coordinate{Latitude: 40.7306, Longitude: -73.9352},
			expected:  6.3,
			tolerance: 0.5,
		},
		{
			name:      "antipodal points",
			a:         models.Coordinate{Latitude: 0, Longitude: 0},
			b:         models.Coordinate{Latitude: 0, Longitude: 180},
			expected:  20015,
			tolerance: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, tt.tolerance)
		})
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := models.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	b := models.Coordinate{Latitude: 51.5074, Longitude: -0.1278}

	assert.InDelta(t, HaversineKm(a, b), HaversineKm(b, a), 1e-9)
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	box := BoundingBox(center, 25)

	// Points just inside the radius in each cardinal direction must fall
	// inside the box.
	points := []models.Coordinate{
		{Latitude: center.Latitude + 0.21, Longitude: center.Longitude}, // ~23km north
		{Latitude: center.Latitude - 0.21, Longitude: center.Longitude},
		{Latitude: center.Latitude, Longitude: center.Longitude + 0.28}, // ~24km east
		{Latitude: center.Latitude, Longitude: center.Longitude - 0.28},
	}
	for _, p := range points {
		assert.LessOrEqual(t, HaversineKm(center, p), 25.0)
		assert.True(t, p.Latitude >= box.MinLat && p.Latitude <= box.MaxLat)
		assert.True(t, p.Longitude >= box.MinLon && p.Longitude <= box.MaxLon)
	}
}

func TestBoundingBox_ClampsAtPole(t *testing.T) {
	box := BoundingBox(models.Coordinate{Latitude: 89.9, Longitude: 10}, 100)

	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(models.Coordinate{Latitude: 40, Longitude: -73}))
	assert.True(t, ValidCoordinate(models.Coordinate{Latitude: -90, Longitude: 180}))
	assert.False(t, ValidCoordinate(models.Coordinate{Latitude: 91, Longitude: 0}))
	assert.False(t, ValidCoordinate(models.Coordinate{Latitude: 0, Longitude: -181}))
}
