package spatial

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind tags the shape a waypoint list was produced from
type Kind string

const (
	KindPolyline  Kind = "polyline"
	KindPolygon   Kind = "polygon"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
)

const (
	// CirclePerimeterPoints is the number of perimeter samples, one every 10 degrees
	CirclePerimeterPoints = 36
	// CircleWaypointCount is the center followed by the perimeter samples
	CircleWaypointCount = CirclePerimeterPoints + 1
	// RectangleWaypointCount is the number of expanded rectangle corners
	RectangleWaypointCount = 4

	// MinSpanDegrees is the smallest rectangle side or circle radius accepted (about 0.11 m)
	MinSpanDegrees = 1e-6
)

var (
	// ErrDegenerateShape is returned when two clicks collapse a rectangle or circle to a point or line
	ErrDegenerateShape = errors.New("shape is degenerate")
	// ErrInvalidShape is returned for unknown kinds, bad cardinality or out-of-range coordinates
	ErrInvalidShape = errors.New("invalid shape")
)

// ParseKind parses a shape type tag. An empty string defaults to polyline.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindPolyline, nil
	case KindPolyline, KindPolygon, KindRectangle, KindCircle:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown shape type %q", ErrInvalidShape, s)
	}
}

// Shape is a closed set of drawable geometries. Use a type switch over
// Polyline, Polygon, Rectangle and Circle.
type Shape interface {
	Kind() Kind
	// Waypoints returns the canonical waypoint encoding stored with a flight plan
	Waypoints() []Waypoint
	isShape()
}

// Polyline is an ordered path of at least two waypoints
type Polyline struct {
	Points []Waypoint
}

// Polygon is an ordered ring of at least three waypoints
type Polygon struct {
	Points []Waypoint
}

// Rectangle is an axis-aligned box
type Rectangle struct {
	Bounds Bounds
}

// Circle is a center and a radius in degrees
type Circle struct {
	Center        Waypoint
	RadiusDegrees float64
}

func (Polyline) Kind() Kind  { return KindPolyline }
func (Polygon) Kind() Kind   { return KindPolygon }
func (Rectangle) Kind() Kind { return KindRectangle }
func (Circle) Kind() Kind    { return KindCircle }

func (Polyline) isShape()  {}
func (Polygon) isShape()   {}
func (Rectangle) isShape() {}
func (Circle) isShape()    {}

func (p Polyline) Waypoints() []Waypoint { return cloneWaypoints(p.Points) }
func (p Polygon) Waypoints() []Waypoint  { return cloneWaypoints(p.Points) }

// Waypoints returns the corners as [top-left, top-right, bottom-right, bottom-left]
func (r Rectangle) Waypoints() []Waypoint {
	b := r.Bounds
	return []Waypoint{
		{Lat: b.MaxLat, Lng: b.MinLng},
		{Lat: b.MaxLat, Lng: b.MaxLng},
		{Lat: b.MinLat, Lng: b.MaxLng},
		{Lat: b.MinLat, Lng: b.MinLng},
	}
}

// Waypoints returns the center followed by 36 perimeter samples
func (c Circle) Waypoints() []Waypoint {
	out := make([]Waypoint, 0, CircleWaypointCount)
	out = append(out, c.Center)
	for i := 0; i < CirclePerimeterPoints; i++ {
		angle := float64(i*360/CirclePerimeterPoints) * math.Pi / 180
		out = append(out, Waypoint{
			Lat: c.Center.Lat + c.RadiusDegrees*math.Cos(angle),
			Lng: c.Center.Lng + c.RadiusDegrees*math.Sin(angle),
		})
	}
	return out
}

// RadiusMeters converts the radius with the flat 111 km per degree approximation
func (c Circle) RadiusMeters() float64 {
	return c.RadiusDegrees * MetersPerDegree
}

// NewPolyline validates and returns a polyline
func NewPolyline(points []Waypoint) (Polyline, error) {
	if err := checkPoints(KindPolyline, points, 2); err != nil {
		return Polyline{}, err
	}
	return Polyline{Points: cloneWaypoints(points)}, nil
}

// NewPolygon validates and returns a polygon
func NewPolygon(points []Waypoint) (Polygon, error) {
	if err := checkPoints(KindPolygon, points, 3); err != nil {
		return Polygon{}, err
	}
	return Polygon{Points: cloneWaypoints(points)}, nil
}

// RectangleFromCorners builds a rectangle from two diagonal corners clicked in any order
func RectangleFromCorners(a, b Waypoint) (Rectangle, error) {
	if !a.Valid() || !b.Valid() {
		return Rectangle{}, fmt.Errorf("%w: corner out of range", ErrInvalidShape)
	}
	bounds := BoundingBox([]Waypoint{a, b})
	if bounds.MaxLat-bounds.MinLat < MinSpanDegrees || bounds.MaxLng-bounds.MinLng < MinSpanDegrees {
		return Rectangle{}, fmt.Errorf("%w: rectangle corners %s and %s do not span an area", ErrDegenerateShape, a, b)
	}
	return Rectangle{Bounds: bounds}, nil
}

// CircleFromEdge builds a circle from its center and a point on its edge
func CircleFromEdge(center, edge Waypoint) (Circle, error) {
	if !center.Valid() || !edge.Valid() {
		return Circle{}, fmt.Errorf("%w: circle point out of range", ErrInvalidShape)
	}
	r := DegreeDistance(center, edge)
	if r < MinSpanDegrees {
		return Circle{}, fmt.Errorf("%w: circle radius is zero", ErrDegenerateShape)
	}
	// every perimeter sample must stay a storable coordinate
	if center.Lat-r < -90 || center.Lat+r > 90 || center.Lng-r < -180 || center.Lng+r > 180 {
		return Circle{}, fmt.Errorf("%w: circle of radius %g degrees around %s crosses a pole or the antimeridian", ErrInvalidShape, r, center)
	}
	return Circle{Center: center, RadiusDegrees: r}, nil
}

// ExpandRectangle returns the four ordered corners for two diagonal clicks
func ExpandRectangle(a, b Waypoint) ([]Waypoint, error) {
	r, err := RectangleFromCorners(a, b)
	if err != nil {
		return nil, err
	}
	return r.Waypoints(), nil
}

// ExpandCircle returns the 37 circle waypoints and the radius in meters
func ExpandCircle(center, edge Waypoint) ([]Waypoint, float64, error) {
	c, err := CircleFromEdge(center, edge)
	if err != nil {
		return nil, 0, err
	}
	return c.Waypoints(), c.RadiusMeters(), nil
}

// Build turns raw clicked points into a shape. Rectangles take two diagonal
// corners and circles take a center and an edge point; polylines and
// polygons take their points verbatim.
func Build(kind Kind, points []Waypoint) (Shape, error) {
	switch kind {
	case KindPolyline:
		return NewPolyline(points)
	case KindPolygon:
		return NewPolygon(points)
	case KindRectangle:
		if len(points) != 2 {
			return nil, fmt.Errorf("%w: rectangle needs 2 corners, got %d", ErrInvalidShape, len(points))
		}
		return RectangleFromCorners(points[0], points[1])
	case KindCircle:
		if len(points) != 2 {
			return nil, fmt.Errorf("%w: circle needs a center and an edge point, got %d points", ErrInvalidShape, len(points))
		}
		return CircleFromEdge(points[0], points[1])
	default:
		return nil, fmt.Errorf("%w: unknown shape type %q", ErrInvalidShape, kind)
	}
}

// Reconstruct recovers a renderable shape from stored waypoints. It returns
// false when the waypoint count does not fit the kind.
func Reconstruct(kind Kind, points []Waypoint) (Shape, bool) {
	switch kind {
	case KindRectangle:
		if len(points) != RectangleWaypointCount {
			return nil, false
		}
		return Rectangle{Bounds: BoundingBox(points)}, true
	case KindCircle:
		if len(points) < 2 {
			return nil, false
		}
		return Circle{Center: points[0], RadiusDegrees: DegreeDistance(points[0], points[1])}, true
	case KindPolyline:
		if len(points) < 2 {
			return nil, false
		}
		return Polyline{Points: cloneWaypoints(points)}, true
	case KindPolygon:
		if len(points) < 3 {
			return nil, false
		}
		return Polygon{Points: cloneWaypoints(points)}, true
	default:
		return nil, false
	}
}

// ValidateStored checks that a waypoint list can be persisted under the given kind
func ValidateStored(kind Kind, points []Waypoint) error {
	switch kind {
	case KindRectangle:
		if len(points) != RectangleWaypointCount {
			return fmt.Errorf("%w: rectangle must have %d waypoints, got %d", ErrInvalidShape, RectangleWaypointCount, len(points))
		}
		return checkPoints(kind, points, RectangleWaypointCount)
	case KindCircle:
		return checkPoints(kind, points, 2)
	case KindPolyline:
		return checkPoints(kind, points, 2)
	case KindPolygon:
		return checkPoints(kind, points, 3)
	default:
		return fmt.Errorf("%w: unknown shape type %q", ErrInvalidShape, kind)
	}
}

// Descriptor is the JSON form of a reconstructed shape
type Descriptor struct {
	Type         Kind         `json:"type"`
	Points       []Waypoint   `json:"points,omitempty"`
	Bounds       *[2]Waypoint `json:"bounds,omitempty"` // [top-left, bottom-right]
	Center       *Waypoint    `json:"center,omitempty"`
	RadiusMeters float64      `json:"radiusMeters,omitempty"`
	AreaSqMeters float64      `json:"areaSquareMeters,omitempty"`
}

// Describe converts a shape to its descriptor
func Describe(s Shape) Descriptor {
	switch v := s.(type) {
	case Polyline:
		return Descriptor{Type: KindPolyline, Points: v.Waypoints()}
	case Polygon:
		return Descriptor{Type: KindPolygon, Points: v.Waypoints(), AreaSqMeters: PolygonArea(v.Points)}
	case Rectangle:
		bounds := [2]Waypoint{v.Bounds.TopLeft(), v.Bounds.BottomRight()}
		return Descriptor{Type: KindRectangle, Bounds: &bounds, AreaSqMeters: PolygonArea(v.Waypoints())}
	case Circle:
		center := v.Center
		r := v.RadiusMeters()
		return Descriptor{Type: KindCircle, Center: &center, RadiusMeters: r, AreaSqMeters: math.Pi * r * r}
	default:
		panic(fmt.Sprintf("spatial: unhandled shape %T", s))
	}
}

func checkPoints(kind Kind, points []Waypoint, min int) error {
	if len(points) < min {
		return fmt.Errorf("%w: %s needs at least %d waypoints, got %d", ErrInvalidShape, kind, min, len(points))
	}
	for i, p := range points {
		if !p.Valid() {
			return fmt.Errorf("%w: waypoint %d %s out of range", ErrInvalidShape, i, p)
		}
	}
	return nil
}

func cloneWaypoints(points []Waypoint) []Waypoint {
	out := make([]Waypoint, len(points))
	copy(out, points)
	return out
}
