package models

import (
	"time"

	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// FlightPlan is a named, persisted shape used as a mission outline
type FlightPlan struct {
	ID          int64              `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Description string             `json:"description" db:"description"`
	ShapeType   spatial.Kind       `json:"shapeType" db:"shape_type"`
	Waypoints   []spatial.Waypoint `json:"waypoints" db:"waypoints"` // stored as a JSON array of [lat, lng]
	CreatedAt   time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" db:"updated_at"`
}

// FlightPlanRequest is the body of POST and PUT /api/flight-plans
type FlightPlanRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	ShapeType   string             `json:"shapeType"`
	Waypoints   []spatial.Waypoint `json:"waypoints" binding:"required"`
}

// ShapeExpandRequest is the body of POST /api/shapes/expand.
// Rectangles take two diagonal corners, circles a center and an edge point.
type ShapeExpandRequest struct {
	Type   string             `json:"type" binding:"required"`
	Points []spatial.Waypoint `json:"points" binding:"required"`
}

// ShapeExpandResponse carries the canonical waypoints for a drawn shape
type ShapeExpandResponse struct {
	Type         spatial.Kind       `json:"type"`
	Waypoints    []spatial.Waypoint `json:"waypoints"`
	RadiusMeters float64            `json:"radiusMeters,omitempty"`
}
