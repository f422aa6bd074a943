package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// haversine returns the great-circle distance in meters between two points.
func haversine(a, b Point) float64 {
	const earthRadiusM = 6371000.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

func TestOffsetPointZeroDistance(t *testing.T) {
	origins := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 12.962322, Lon: 77.655222},
		{Lat: -33.86, Lon: 151.21},
	}
	for _, origin := range origins {
		for _, bearing := range []float64{0, 45, 90, 180, 270, 359.9} {
			require.Equal(t, origin, OffsetPoint(origin, 0, bearing))
		}
	}
}

func TestOffsetPointDistanceAccuracy(t *testing.T) {
	origin := Point{Lat: 12.9, Lon: 77.6}
	for _, d := range []float64{1, 10, 100, 500} {
		for _, bearing := range []float64{0, 45, 90, 135, 180, 270} {
			got := OffsetPoint(origin, d, bearing)
			require.InEpsilon(t, d, haversine(origin, got), 0.01,
				"distance %v bearing %v", d, bearing)
		}
	}
}

func TestOffsetPointEastScenario(t *testing.T) {
	anchor := Point{Lat: 12.9, Lon: 77.6}
	got := OffsetPoint(anchor, 10, 90)

	wantDLon := 10 / (111132.0 * math.Cos(12.9*math.Pi/180))
	require.InDelta(t, anchor.Lon+wantDLon, got.Lon, 1e-9)
	require.InDelta(t, anchor.Lat, got.Lat, 1e-9)
	require.InDelta(t, 9.22e-5, got.Lon-anchor.Lon, 5e-7)
}

func TestDisplacementPointNorthOnly(t *testing.T) {
	origin := Point{Lat: 12.962322, Lon: 77.655222}
	got := DisplacementPoint(origin, 5, 0)

	require.InDelta(t, origin.Lat+5/111132.0, got.Lat, 1e-12)
	require.InDelta(t, origin.Lon, got.Lon, 1e-12)
}

func TestDisplacementPointRoundTrip(t *testing.T) {
	origin := Point{Lat: 48.1, Lon: 11.5}
	for _, d := range [][2]float64{{5, 0}, {0, 7.5}, {-3.2, 4.1}, {100, -250}} {
		there := DisplacementPoint(origin, d[0], d[1])
		back := DisplacementPoint(there, -d[0], -d[1])
		require.InDelta(t, origin.Lat, back.Lat, 1e-9)
		// The cosine factor at the intermediate point differs slightly from
		// the origin's; longitude tolerance is correspondingly looser.
		require.InDelta(t, origin.Lon, back.Lon, 1e-6)
	}
}

func TestOffsetPointPolarClamp(t *testing.T) {
	origin := Point{Lat: 90, Lon: 0}
	got := OffsetPoint(origin, 10, 90)

	require.False(t, math.IsNaN(got.Lon))
	require.False(t, math.IsInf(got.Lon, 0))
	// cos(90°) would be ~0; the clamp caps the blow-up at the 1e-4 floor.
	require.InDelta(t, 10/(111132.0*1e-4), got.Lon, 1e-3)
}
