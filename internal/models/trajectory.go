package models

import (
	"time"

	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/internal/stats"
)

// Trajectory is a recorded UAV path with duration and distance metadata
type Trajectory struct {
	ID        int64              `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	Points    []spatial.Waypoint `json:"points" db:"points"`
	Duration  int64              `json:"duration" db:"duration"` // Seconds
	Distance  float64            `json:"distance" db:"distance"` // Meters, derived from Points
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
}

// TrajectoryRequest is the body of POST /api/trajectories.
// Distance is accepted for compatibility but always recomputed from Points.
type TrajectoryRequest struct {
	Name     string             `json:"name" binding:"required"`
	Points   []spatial.Waypoint `json:"points" binding:"required"`
	Duration int64              `json:"duration" binding:"gte=0"`
	Distance *float64           `json:"distance,omitempty"`
}

// BulkDeleteRequest is the body of POST /api/trajectories/bulk-delete
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// TrajectorySummary aggregates every stored trajectory
type TrajectorySummary struct {
	Count           int           `json:"count"`
	DistanceMeters  stats.Summary `json:"distanceMeters"`
	DurationSeconds stats.Summary `json:"durationSeconds"`
	AverageSpeedMps float64       `json:"averageSpeedMps"` // Total distance over total duration
	GeneratedAt     time.Time     `json:"generatedAt"`
}
