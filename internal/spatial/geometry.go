package spatial

import (
	"math"
)

// Bounds is an axis-aligned latitude/longitude box
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// TopLeft returns the north-west corner
func (b Bounds) TopLeft() Waypoint { return Waypoint{Lat: b.MaxLat, Lng: b.MinLng} }

// BottomRight returns the south-east corner
func (b Bounds) BottomRight() Waypoint { return Waypoint{Lat: b.MinLat, Lng: b.MaxLng} }

// Centroid calculates the arithmetic centroid of a set of waypoints
func Centroid(points []Waypoint) Waypoint {
	if len(points) == 0 {
		return Waypoint{}
	}

	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}

	return Waypoint{
		Lat: sumLat / float64(len(points)),
		Lng: sumLng / float64(len(points)),
	}
}

// BoundingBox calculates the bounding box of a set of waypoints
func BoundingBox(points []Waypoint) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}

	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}

	return b
}

// PolygonArea calculates the area of a ring of waypoints in square meters.
// Uses the shoelace formula with a local equirectangular scale, which is
// adequate for mission-sized areas.
func PolygonArea(points []Waypoint) float64 {
	if len(points) < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < len(points); i++ {
		j := (i + 1) % len(points)
		sum += (points[j].Lng - points[i].Lng) * (points[j].Lat + points[i].Lat)
	}

	latRad := Centroid(points).Lat * math.Pi / 180
	metersPerDegreeLat := 111320.0
	metersPerDegreeLng := 111320.0 * math.Cos(latRad)

	return math.Abs(sum) * metersPerDegreeLat * metersPerDegreeLng / 2.0
}

// SimplifyPath simplifies a path using the Ramer-Douglas-Peucker algorithm
// epsilon: maximum distance (meters) from the simplified path
func SimplifyPath(points []Waypoint, epsilon float64) []Waypoint {
	if len(points) < 3 || epsilon <= 0 {
		return points
	}

	maxDist := 0.0
	maxIndex := 0
	last := len(points) - 1

	for i := 1; i < last; i++ {
		dist := perpendicularDistance(points[i], points[0], points[last])
		if dist > maxDist {
			maxDist = dist
			maxIndex = i
		}
	}

	if maxDist > epsilon {
		left := SimplifyPath(points[:maxIndex+1], epsilon)
		right := SimplifyPath(points[maxIndex:], epsilon)

		// drop the shared middle point
		result := make([]Waypoint, len(left)+len(right)-1)
		copy(result, left)
		copy(result[len(left):], right[1:])
		return result
	}

	return []Waypoint{points[0], points[last]}
}

// perpendicularDistance calculates the distance in meters from a point to the line through two others
func perpendicularDistance(point, lineStart, lineEnd Waypoint) float64 {
	x0, y0 := point.Lat, point.Lng
	x1, y1 := lineStart.Lat, lineStart.Lng
	x2, y2 := lineEnd.Lat, lineEnd.Lng

	num := math.Abs((y2-y1)*x0 - (x2-x1)*y0 + x2*y1 - y2*x1)
	den := math.Sqrt((y2-y1)*(y2-y1) + (x2-x1)*(x2-x1))

	if den == 0 {
		return HaversineDistance(point, lineStart)
	}

	metersPerDegree := 111320.0
	return (num / den) * metersPerDegree
}
