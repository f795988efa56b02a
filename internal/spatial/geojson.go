package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToOrbPoint converts a waypoint to an orb point, which is ordered [lng, lat]
func ToOrbPoint(w Waypoint) orb.Point {
	return orb.Point{w.Lng, w.Lat}
}

// LineString converts a path to a GeoJSON-ready line string
func LineString(points []Waypoint) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, ToOrbPoint(p))
	}
	return ls
}

// Ring converts waypoints to a closed ring
func Ring(points []Waypoint) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, ToOrbPoint(p))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Geometry returns the GeoJSON geometry for a shape. Circles are exported
// as their perimeter polygon; the center and radius go in properties.
func Geometry(s Shape) orb.Geometry {
	switch v := s.(type) {
	case Polyline:
		return LineString(v.Points)
	case Polygon:
		return orb.Polygon{Ring(v.Points)}
	case Rectangle:
		return orb.Polygon{Ring(v.Waypoints())}
	case Circle:
		return orb.Polygon{Ring(v.Waypoints()[1:])}
	default:
		return nil
	}
}

// ShapeFeature builds a GeoJSON feature for a shape with descriptor properties
func ShapeFeature(s Shape) *geojson.Feature {
	f := geojson.NewFeature(Geometry(s))
	d := Describe(s)
	f.Properties["shapeType"] = string(d.Type)
	if d.Center != nil {
		f.Properties["center"] = []float64{d.Center.Lat, d.Center.Lng}
		f.Properties["radiusMeters"] = d.RadiusMeters
	}
	if d.AreaSqMeters > 0 {
		f.Properties["areaSquareMeters"] = d.AreaSqMeters
	}
	return f
}

// PathFeature builds a GeoJSON line feature for a recorded path
func PathFeature(points []Waypoint) *geojson.Feature {
	f := geojson.NewFeature(LineString(points))
	f.Properties["pointCount"] = len(points)
	f.Properties["distanceMeters"] = RoundMeters(PathLength(points))
	return f
}
