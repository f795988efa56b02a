package planner

import (
	"errors"
	"testing"

	"github.com/jengzang/uav-ground-control/internal/spatial"
)

func wp(lat, lng float64) spatial.Waypoint { return spatial.NewWaypoint(lat, lng) }

func TestRectangleCompletesOnSecondClick(t *testing.T) {
	s := NewSession()
	if err := s.Begin(spatial.KindRectangle); err != nil {
		t.Fatal(err)
	}

	plan, err := s.Click(wp(5, 25))
	if err != nil || plan != nil {
		t.Fatalf("first click: %v %v", plan, err)
	}
	plan, err = s.Click(wp(10, 20))
	if err != nil || plan == nil {
		t.Fatalf("second click: %v %v", plan, err)
	}

	want := []spatial.Waypoint{wp(10, 20), wp(10, 25), wp(5, 25), wp(5, 20)}
	got := plan.Waypoints()
	if len(got) != len(want) {
		t.Fatalf("got %d corners", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(s.Points()) != 0 || !s.Active() || s.Mode() != spatial.KindRectangle {
		t.Errorf("session not reset for next shape")
	}
}

func TestDegenerateSecondClickKeepsFirst(t *testing.T) {
	s := NewSession()
	_ = s.Begin(spatial.KindCircle)
	_, _ = s.Click(wp(1, 1))

	if _, err := s.Click(wp(1, 1)); !errors.Is(err, spatial.ErrDegenerateShape) {
		t.Fatalf("same-point click: %v", err)
	}
	if pts := s.Points(); len(pts) != 1 || pts[0] != wp(1, 1) {
		t.Fatalf("points after rejection = %v", pts)
	}

	plan, err := s.Click(wp(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if plan.Kind() != spatial.KindCircle || len(plan.Waypoints()) != spatial.CircleWaypointCount {
		t.Errorf("plan %v with %d waypoints", plan.Kind(), len(plan.Waypoints()))
	}
}

func TestPolylineAndPolygonFinish(t *testing.T) {
	s := NewSession()
	_ = s.Begin(spatial.KindPolygon)
	_, _ = s.Click(wp(0, 0))
	_, _ = s.Click(wp(0, 1))

	if _, err := s.Finish(); !errors.Is(err, spatial.ErrInvalidShape) {
		t.Fatalf("two-point polygon: %v", err)
	}

	_, _ = s.Click(wp(1, 1))
	plan, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Waypoints()) != 3 {
		t.Errorf("polygon has %d points", len(plan.Waypoints()))
	}

	_ = s.Begin(spatial.KindPolyline)
	if _, err := s.Finish(); !errors.Is(err, ErrNothingToFinish) {
		t.Errorf("empty finish: %v", err)
	}
}

func TestClickOutsideDrawingMode(t *testing.T) {
	s := NewSession()
	if _, err := s.Click(wp(0, 0)); !errors.Is(err, ErrNotDrawing) {
		t.Errorf("click while idle: %v", err)
	}

	_ = s.Begin(spatial.KindPolyline)
	_, _ = s.Click(wp(0, 0))
	s.Cancel()
	if s.Active() || len(s.Points()) != 0 {
		t.Error("Cancel left state behind")
	}
	if _, err := s.Finish(); !errors.Is(err, ErrNotDrawing) {
		t.Errorf("finish after cancel: %v", err)
	}
}

func TestBeginRejectsUnknownKind(t *testing.T) {
	s := NewSession()
	if err := s.Begin("hexagon"); !errors.Is(err, spatial.ErrInvalidShape) {
		t.Errorf("Begin(hexagon) = %v", err)
	}
}

func TestPreviewAndNudge(t *testing.T) {
	s := NewSession()
	_ = s.Begin(spatial.KindCircle)
	if s.Preview(wp(0, 1)) != nil {
		t.Error("preview before first click")
	}
	_, _ = s.Click(wp(0, 0))

	c, ok := s.Preview(wp(0, 1)).(spatial.Circle)
	if !ok || c.RadiusDegrees != 1 {
		t.Fatalf("preview = %#v", s.Preview(wp(0, 1)))
	}
	if s.Preview(wp(0, 0)) != nil {
		t.Error("degenerate preview should be nil")
	}

	if err := s.Nudge(0.5, 0); err != nil {
		t.Fatal(err)
	}
	if pts := s.Points(); pts[0] != wp(0.5, 0) {
		t.Errorf("nudged point = %v", pts[0])
	}

	_ = s.Begin(spatial.KindPolyline)
	_, _ = s.Click(wp(0, 0))
	if _, ok := s.Preview(wp(1, 1)).(spatial.Polyline); !ok {
		t.Error("polyline preview missing")
	}
	s.Undo()
	if len(s.Points()) != 0 {
		t.Error("Undo did not drop the point")
	}
}
