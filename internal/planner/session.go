// Package planner turns pointer clicks into finished flight plan shapes.
// Rectangles and circles complete on their second click; polylines and
// polygons collect points until Finish.
package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/uav-ground-control/internal/spatial"
)

var (
	// ErrNotDrawing is returned when no drawing mode is active
	ErrNotDrawing = errors.New("no drawing mode active")
	// ErrNothingToFinish is returned by Finish without any points
	ErrNothingToFinish = errors.New("nothing drawn yet")
)

// Plan is a finished drawing ready to be named and saved
type Plan struct {
	Shape     spatial.Shape
	CreatedAt time.Time
}

// Kind returns the kind of the drawn shape
func (p Plan) Kind() spatial.Kind { return p.Shape.Kind() }

// Waypoints returns the canonical waypoint encoding of the shape
func (p Plan) Waypoints() []spatial.Waypoint { return p.Shape.Waypoints() }

// Session holds one in-progress drawing. It is not safe for concurrent use.
type Session struct {
	mode   spatial.Kind
	active bool
	points []spatial.Waypoint
	now    func() time.Time
}

// NewSession returns an idle session
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Begin enters a drawing mode, discarding any unfinished drawing
func (s *Session) Begin(kind spatial.Kind) error {
	k, err := spatial.ParseKind(string(kind))
	if err != nil {
		return err
	}
	s.mode = k
	s.active = true
	s.points = nil
	return nil
}

// Mode returns the active drawing mode
func (s *Session) Mode() spatial.Kind { return s.mode }

// Active reports whether a drawing mode is on
func (s *Session) Active() bool { return s.active }

// Points returns the clicked points so far
func (s *Session) Points() []spatial.Waypoint {
	out := make([]spatial.Waypoint, len(s.points))
	copy(out, s.points)
	return out
}

// Click adds a point. For rectangles and circles the second click
// completes the shape and returns it; a second click that would produce a
// degenerate shape is rejected and the first point is kept.
func (s *Session) Click(p spatial.Waypoint) (*Plan, error) {
	if !s.active {
		return nil, ErrNotDrawing
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: point %s out of range", spatial.ErrInvalidShape, p)
	}

	switch s.mode {
	case spatial.KindRectangle, spatial.KindCircle:
		if len(s.points) == 0 {
			s.points = []spatial.Waypoint{p}
			return nil, nil
		}
		shape, err := spatial.Build(s.mode, []spatial.Waypoint{s.points[0], p})
		if err != nil {
			return nil, err
		}
		return s.complete(shape), nil
	default:
		s.points = append(s.points, p)
		return nil, nil
	}
}

// Nudge moves the last clicked point by the given offset in degrees
func (s *Session) Nudge(dLat, dLng float64) error {
	if !s.active || len(s.points) == 0 {
		return ErrNothingToFinish
	}
	last := s.points[len(s.points)-1]
	moved := spatial.NewWaypoint(last.Lat+dLat, last.Lng+dLng)
	if !moved.Valid() {
		return fmt.Errorf("%w: point %s out of range", spatial.ErrInvalidShape, moved)
	}
	s.points[len(s.points)-1] = moved
	return nil
}

// Undo drops the last clicked point
func (s *Session) Undo() {
	if len(s.points) > 0 {
		s.points = s.points[:len(s.points)-1]
	}
}

// Finish completes a polyline or polygon. Rectangles and circles may also
// be finished once both points are placed.
func (s *Session) Finish() (*Plan, error) {
	if !s.active {
		return nil, ErrNotDrawing
	}
	if len(s.points) == 0 {
		return nil, ErrNothingToFinish
	}
	shape, err := spatial.Build(s.mode, s.points)
	if err != nil {
		return nil, err
	}
	return s.complete(shape), nil
}

// Cancel leaves drawing mode and drops any points
func (s *Session) Cancel() {
	s.active = false
	s.mode = ""
	s.points = nil
}

// Preview returns the shape that would result if cursor were clicked
// next, or nil when there is nothing to show yet
func (s *Session) Preview(cursor spatial.Waypoint) spatial.Shape {
	if !s.active || len(s.points) == 0 {
		return nil
	}

	var shape spatial.Shape
	var err error
	switch s.mode {
	case spatial.KindRectangle, spatial.KindCircle:
		shape, err = spatial.Build(s.mode, []spatial.Waypoint{s.points[0], cursor})
	default:
		shape, err = spatial.Build(s.mode, append(s.Points(), cursor))
	}
	if err != nil {
		return nil
	}
	return shape
}

// complete ends the drawing. The session stays in the same mode, ready
// for the next shape.
func (s *Session) complete(shape spatial.Shape) *Plan {
	s.points = nil
	return &Plan{Shape: shape, CreatedAt: s.now().UTC()}
}
