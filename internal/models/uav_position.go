package models

import "time"

// UAVPosition is one entry of the append-only position log
type UAVPosition struct {
	ID        int64     `json:"id" db:"id"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Altitude  float64   `json:"altitude" db:"altitude"` // Meters
	Heading   float64   `json:"heading" db:"heading"`   // Degrees, 0 = north
	Speed     float64   `json:"speed" db:"speed"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// UAVPositionRequest is the body of POST /api/uav-position
type UAVPositionRequest struct {
	Latitude  *float64   `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" binding:"required,gte=-180,lte=180"`
	Altitude  float64    `json:"altitude"`
	Heading   float64    `json:"heading"`
	Speed     float64    `json:"speed"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
