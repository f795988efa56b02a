package service

import (
	"fmt"

	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// ExpandShape turns the clicks of a drawing gesture into the canonical
// waypoints stored for that shape: four corners for a rectangle, the center
// plus 36 perimeter points for a circle, and the clicks themselves for
// polylines and polygons.
func ExpandShape(req models.ShapeExpandRequest) (*models.ShapeExpandResponse, error) {
	kind, err := spatial.ParseKind(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	shape, err := spatial.Build(kind, req.Points)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	resp := &models.ShapeExpandResponse{
		Type:      kind,
		Waypoints: shape.Waypoints(),
	}
	if c, ok := shape.(spatial.Circle); ok {
		resp.RadiusMeters = c.RadiusMeters()
	}
	return resp, nil
}
