package spatial

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func nearWaypoint(a, b Waypoint) bool { return near(a.Lat, b.Lat, tol) && near(a.Lng, b.Lng, tol) }

func TestExpandRectangleScenario(t *testing.T) {
	got, err := ExpandRectangle(NewWaypoint(10, 20), NewWaypoint(5, 25))
	if err != nil {
		t.Fatalf("ExpandRectangle: %v", err)
	}
	want := []Waypoint{{10, 20}, {10, 25}, {5, 25}, {5, 20}}
	if len(got) != len(want) {
		t.Fatalf("got %d corners, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExpandRectangleClickOrder(t *testing.T) {
	a, b := NewWaypoint(-7.80, 110.36), NewWaypoint(-7.79, 110.38)
	pairs := [][2]Waypoint{
		{a, b},
		{b, a},
		{NewWaypoint(a.Lat, b.Lng), NewWaypoint(b.Lat, a.Lng)},
		{NewWaypoint(b.Lat, a.Lng), NewWaypoint(a.Lat, b.Lng)},
	}
	var first []Waypoint
	for i, p := range pairs {
		got, err := ExpandRectangle(p[0], p[1])
		if err != nil {
			t.Fatalf("pair %d: %v", i, err)
		}
		box := BoundingBox(got)
		want := BoundingBox(p[:])
		if box != want {
			t.Errorf("pair %d: bounding box %+v, want %+v", i, box, want)
		}
		tl, tr, br, bl := got[0], got[1], got[2], got[3]
		if tl.Lat != box.MaxLat || tl.Lng != box.MinLng ||
			tr.Lat != box.MaxLat || tr.Lng != box.MaxLng ||
			br.Lat != box.MinLat || br.Lng != box.MaxLng ||
			bl.Lat != box.MinLat || bl.Lng != box.MinLng {
			t.Errorf("pair %d: corners out of order: %v", i, got)
		}
		if first == nil {
			first = got
		} else {
			for j := range got {
				if got[j] != first[j] {
					t.Errorf("pair %d: corner %d differs from first click order", i, j)
				}
			}
		}
	}
}

func TestExpandRectangleDegenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b Waypoint
	}{
		{"same point", NewWaypoint(1, 1), NewWaypoint(1, 1)},
		{"same latitude", NewWaypoint(1, 1), NewWaypoint(1, 2)},
		{"same longitude", NewWaypoint(1, 1), NewWaypoint(2, 1)},
		{"below minimum span", NewWaypoint(1, 1), NewWaypoint(1+MinSpanDegrees/2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpandRectangle(tt.a, tt.b); !errors.Is(err, ErrDegenerateShape) {
				t.Errorf("expected ErrDegenerateShape, got %v", err)
			}
		})
	}
}

func TestExpandCircleScenario(t *testing.T) {
	center, edge := NewWaypoint(0, 0), NewWaypoint(0, 1)
	wps, radius, err := ExpandCircle(center, edge)
	if err != nil {
		t.Fatalf("ExpandCircle: %v", err)
	}
	if len(wps) != CircleWaypointCount {
		t.Fatalf("got %d waypoints, want %d", len(wps), CircleWaypointCount)
	}
	if !near(radius, 111000, 1e-6) {
		t.Errorf("radius %f, want 111000", radius)
	}
	if wps[0] != center {
		t.Errorf("first waypoint %v, want center %v", wps[0], center)
	}
	if !nearWaypoint(wps[1], NewWaypoint(1, 0)) {
		t.Errorf("first perimeter point %v, want (1, 0)", wps[1])
	}
	// 90 degrees is due east of center
	if !nearWaypoint(wps[10], NewWaypoint(0, 1)) {
		t.Errorf("perimeter point at 90 degrees %v, want (0, 1)", wps[10])
	}
}

func TestExpandCircleProperties(t *testing.T) {
	cases := [][2]Waypoint{
		{{-7.7956, 110.3695}, {-7.79, 110.37}},
		{{45, -120}, {44.5, -119.2}},
		{{0, 179.5}, {0.1, 179.4}},
	}
	for _, c := range cases {
		wps, _, err := ExpandCircle(c[0], c[1])
		if err != nil {
			t.Fatalf("ExpandCircle(%v, %v): %v", c[0], c[1], err)
		}
		if len(wps) != 37 {
			t.Fatalf("got %d waypoints", len(wps))
		}
		rDeg := DegreeDistance(c[0], c[1])
		for i := 1; i < len(wps); i++ {
			if d := DegreeDistance(wps[0], wps[i]); !near(d, rDeg, 1e-12) {
				t.Errorf("perimeter point %d at %g degrees, want %g", i, d, rDeg)
			}
		}

		again, _, _ := ExpandCircle(c[0], c[1])
		for i := range wps {
			if wps[i] != again[i] {
				t.Fatalf("expansion is not deterministic at %d", i)
			}
		}
	}
}

func TestExpandCircleDegenerate(t *testing.T) {
	if _, _, err := ExpandCircle(NewWaypoint(3, 4), NewWaypoint(3, 4)); !errors.Is(err, ErrDegenerateShape) {
		t.Errorf("expected ErrDegenerateShape, got %v", err)
	}
	if _, _, err := ExpandCircle(NewWaypoint(91, 0), NewWaypoint(3, 4)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestExpandCircleStaysInRange(t *testing.T) {
	tests := []struct {
		name         string
		center, edge Waypoint
	}{
		{"north pole", NewWaypoint(89.5, 0), NewWaypoint(89.5, 1)},
		{"south pole", NewWaypoint(-89.9, 10), NewWaypoint(-89.9, 10.5)},
		{"antimeridian east", NewWaypoint(0, 179.8), NewWaypoint(0.3, 179.8)},
		{"antimeridian west", NewWaypoint(10, -179.9), NewWaypoint(10, -179.7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ExpandCircle(tt.center, tt.edge); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}

	// a circle touching the boundary is still storable
	wps, _, err := ExpandCircle(NewWaypoint(89, 0), NewWaypoint(90, 0))
	if err != nil {
		t.Fatalf("ExpandCircle: %v", err)
	}
	if err := ValidateStored(KindCircle, wps); err != nil {
		t.Errorf("expanded circle rejected on save: %v", err)
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	a, b := NewWaypoint(10, 20), NewWaypoint(5, 25)
	corners, err := ExpandRectangle(a, b)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := Reconstruct(KindRectangle, corners)
	if !ok {
		t.Fatal("rectangle did not reconstruct")
	}
	rect, isRect := s.(Rectangle)
	if !isRect {
		t.Fatalf("got %T, want Rectangle", s)
	}
	if rect.Bounds != BoundingBox([]Waypoint{a, b}) {
		t.Errorf("bounds %+v", rect.Bounds)
	}
	d := Describe(s)
	if d.Bounds == nil || d.Bounds[0] != NewWaypoint(10, 20) || d.Bounds[1] != NewWaypoint(5, 25) {
		t.Errorf("descriptor bounds %v", d.Bounds)
	}

	center, edge := NewWaypoint(-7.7956, 110.3695), NewWaypoint(-7.7856, 110.3795)
	wps, radius, err := ExpandCircle(center, edge)
	if err != nil {
		t.Fatal(err)
	}
	s, ok = Reconstruct(KindCircle, wps)
	if !ok {
		t.Fatal("circle did not reconstruct")
	}
	circle := s.(Circle)
	if circle.Center != center {
		t.Errorf("center %v, want %v", circle.Center, center)
	}
	if !near(circle.RadiusMeters(), radius, 1e-6) {
		t.Errorf("radius %f, want %f", circle.RadiusMeters(), radius)
	}
}

func TestReconstructCardinalityMismatch(t *testing.T) {
	three := []Waypoint{{1, 1}, {1, 2}, {2, 2}}
	tests := []struct {
		kind   Kind
		points []Waypoint
	}{
		{KindRectangle, three},
		{KindRectangle, nil},
		{KindCircle, three[:1]},
		{KindPolyline, three[:1]},
		{KindPolygon, three[:2]},
		{Kind("hexagon"), three},
	}
	for _, tt := range tests {
		if s, ok := Reconstruct(tt.kind, tt.points); ok || s != nil {
			t.Errorf("Reconstruct(%s, %d points) = %v, %v; want nil, false", tt.kind, len(tt.points), s, ok)
		}
	}
}

func TestReconstructVerbatim(t *testing.T) {
	pts := []Waypoint{{1, 1}, {1, 2}, {2, 2}}
	s, ok := Reconstruct(KindPolygon, pts)
	if !ok {
		t.Fatal("polygon did not reconstruct")
	}
	got := s.Waypoints()
	for i := range pts {
		if got[i] != pts[i] {
			t.Errorf("point %d: %v, want %v", i, got[i], pts[i])
		}
	}
	got[0].Lat = 99
	if pts[0].Lat == 99 {
		t.Error("reconstructed shape aliases caller slice")
	}
}

func TestBuild(t *testing.T) {
	s, err := Build(KindRectangle, []Waypoint{{10, 20}, {5, 25}})
	if err != nil || s.Kind() != KindRectangle || len(s.Waypoints()) != 4 {
		t.Errorf("rectangle build: %v %v", s, err)
	}
	s, err = Build(KindCircle, []Waypoint{{0, 0}, {0, 1}})
	if err != nil || len(s.Waypoints()) != 37 {
		t.Errorf("circle build: %v", err)
	}
	if _, err := Build(KindPolygon, []Waypoint{{0, 0}, {0, 1}}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("two-point polygon: %v", err)
	}
	if _, err := Build(KindRectangle, []Waypoint{{0, 0}}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("one-corner rectangle: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindPolyline, "Circle": KindCircle, " rectangle ": KindRectangle} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("triangle"); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestValidateStored(t *testing.T) {
	circle, _, _ := ExpandCircle(NewWaypoint(0, 0), NewWaypoint(0, 1))
	if err := ValidateStored(KindCircle, circle); err != nil {
		t.Errorf("circle: %v", err)
	}
	if err := ValidateStored(KindRectangle, circle); err == nil {
		t.Error("37 points accepted as rectangle")
	}
	if err := ValidateStored(KindPolyline, []Waypoint{{0, 0}, {0, 200}}); err == nil {
		t.Error("out of range longitude accepted")
	}
}
