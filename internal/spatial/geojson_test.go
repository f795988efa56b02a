package spatial

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestShapeFeatureCircle(t *testing.T) {
	c, err := CircleFromEdge(NewWaypoint(0, 0), NewWaypoint(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	f := ShapeFeature(c)
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry %T, want orb.Polygon", f.Geometry)
	}
	ring := poly[0]
	if len(ring) != CirclePerimeterPoints+1 || !ring.Closed() {
		t.Errorf("ring has %d points, closed=%v", len(ring), ring.Closed())
	}
	// orb points are [lng, lat]
	if ring[0][0] != 0 || ring[0][1] != 1 {
		t.Errorf("first ring point %v", ring[0])
	}
	if f.Properties["shapeType"] != "circle" || f.Properties["radiusMeters"] != 111000.0 {
		t.Errorf("properties %v", f.Properties)
	}
}

func TestPathFeature(t *testing.T) {
	f := PathFeature([]Waypoint{{0, 0}, {0, 1}})
	ls, ok := f.Geometry.(orb.LineString)
	if !ok || len(ls) != 2 {
		t.Fatalf("geometry %#v", f.Geometry)
	}
	if f.Properties["distanceMeters"] != 111195.0 {
		t.Errorf("distance property %v", f.Properties["distanceMeters"])
	}
}
