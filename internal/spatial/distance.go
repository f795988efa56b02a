package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters

	// MetersPerDegree is the flat approximation used for shape radii (1 degree ≈ 111 km).
	// It is intentionally not geodesic; circle expansion and reconstruction share it.
	MetersPerDegree = 111000.0
)

// HaversineDistance calculates the great-circle distance between two waypoints in meters
// using the Haversine formula
func HaversineDistance(a, b Waypoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PathLength calculates the total length of a path (sequence of waypoints) in meters.
// Segments are summed unrounded; round once with RoundMeters when persisting.
func PathLength(points []Waypoint) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += HaversineDistance(points[i-1], points[i])
	}

	return totalDist
}

// RoundMeters rounds a distance to the nearest whole meter
func RoundMeters(d float64) float64 {
	return math.Round(d)
}

// Bearing calculates the initial bearing (forward azimuth) from a to b.
// Returns bearing in degrees (0-360), where 0 is North, 90 is East, etc.
func Bearing(a, b Waypoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)

	lat1 := p1.Lat.Radians()
	lat2 := p2.Lat.Radians()
	lonDiff := p2.Lng.Radians() - p1.Lng.Radians()

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	// Convert to degrees and normalize to 0-360
	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// DegreeDistance is the planar Euclidean distance between two waypoints in degrees
func DegreeDistance(a, b Waypoint) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lng-a.Lng)
}
