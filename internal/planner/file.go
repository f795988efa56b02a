package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// ErrInvalidPlanFile is returned when an imported file is not a plan
var ErrInvalidPlanFile = errors.New("invalid plan file format")

var whitespace = regexp.MustCompile(`\s+`)

// FileName returns the export file name for a plan name
func FileName(name string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(name), "_") + ".json"
}

// WritePlan writes plan as indented JSON
func WritePlan(w io.Writer, plan *models.FlightPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// ReadPlan reads a plan exported by WritePlan and returns it as a create
// request. The id and timestamps of the file are ignored.
func ReadPlan(r io.Reader) (*models.FlightPlanRequest, error) {
	var plan models.FlightPlan
	if err := json.NewDecoder(r).Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlanFile, err)
	}
	if strings.TrimSpace(plan.Name) == "" || len(plan.Waypoints) == 0 {
		return nil, ErrInvalidPlanFile
	}
	kind, err := spatial.ParseKind(string(plan.ShapeType))
	if err != nil {
		return nil, err
	}
	if err := spatial.ValidateStored(kind, plan.Waypoints); err != nil {
		return nil, err
	}

	return &models.FlightPlanRequest{
		Name:        plan.Name,
		Description: plan.Description,
		ShapeType:   string(kind),
		Waypoints:   plan.Waypoints,
	}, nil
}

// ParsePoint parses "lat,lng"
func ParsePoint(s string) (spatial.Waypoint, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return spatial.Waypoint{}, fmt.Errorf("point %q: want lat,lng", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return spatial.Waypoint{}, fmt.Errorf("point %q: bad latitude: %w", s, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return spatial.Waypoint{}, fmt.Errorf("point %q: bad longitude: %w", s, err)
	}
	p := spatial.NewWaypoint(la, ln)
	if !p.Valid() {
		return spatial.Waypoint{}, fmt.Errorf("%w: point %s out of range", spatial.ErrInvalidShape, p)
	}
	return p, nil
}

// Draw replays clicks through a session and returns the finished plan
func Draw(kind spatial.Kind, points []spatial.Waypoint) (*Plan, error) {
	s := NewSession()
	if err := s.Begin(kind); err != nil {
		return nil, err
	}
	for _, p := range points {
		plan, err := s.Click(p)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}
	return s.Finish()
}
