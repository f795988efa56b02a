package spatial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Waypoint is a WGS84 coordinate in decimal degrees.
// It is encoded in JSON as a [lat, lng] pair.
type Waypoint struct {
	Lat float64
	Lng float64
}

// NewWaypoint returns a waypoint for the given latitude and longitude
func NewWaypoint(lat, lng float64) Waypoint {
	return Waypoint{Lat: lat, Lng: lng}
}

// Valid reports whether the coordinate is finite and within WGS84 bounds
func (w Waypoint) Valid() bool {
	if math.IsNaN(w.Lat) || math.IsNaN(w.Lng) || math.IsInf(w.Lat, 0) || math.IsInf(w.Lng, 0) {
		return false
	}
	return w.Lat >= -90 && w.Lat <= 90 && w.Lng >= -180 && w.Lng <= 180
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", w.Lat, w.Lng)
}

// MarshalJSON encodes the waypoint as [lat, lng]
func (w Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{w.Lat, w.Lng})
}

// UnmarshalJSON accepts either [lat, lng] or {"lat": .., "lng": ..}
func (w *Waypoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Lat == nil || obj.Lng == nil {
			return fmt.Errorf("waypoint object requires lat and lng")
		}
		w.Lat, w.Lng = *obj.Lat, *obj.Lng
		return nil
	}

	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("waypoint must be a [lat, lng] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("waypoint must have exactly 2 values, got %d", len(pair))
	}
	w.Lat, w.Lng = pair[0], pair[1]
	return nil
}

// EncodeWaypoints serializes waypoints as a JSON array of pairs for storage
func EncodeWaypoints(points []Waypoint) (string, error) {
	if points == nil {
		points = []Waypoint{}
	}
	b, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("failed to encode waypoints: %w", err)
	}
	return string(b), nil
}

// DecodeWaypoints is the inverse of EncodeWaypoints
func DecodeWaypoints(s string) ([]Waypoint, error) {
	var points []Waypoint
	if err := json.Unmarshal([]byte(s), &points); err != nil {
		return nil, fmt.Errorf("failed to decode waypoints: %w", err)
	}
	return points, nil
}
