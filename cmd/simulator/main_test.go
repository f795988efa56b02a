package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/sim"
	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/internal/spool"
)

type offlineSaver struct{}

func (offlineSaver) SaveTrajectory(context.Context, models.TrajectoryRequest) (*models.TrajectoryCreatedResponse, error) {
	return nil, errors.New("connection refused")
}

func TestQuitKeepsActiveRecording(t *testing.T) {
	sp, err := spool.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, err := sim.New(offlineSaver{}, nil, sim.Options{
		Start: spatial.NewWaypoint(0, 0),
		Speed: 0.001,
		Tick:  time.Hour,
		Spool: sp,
	})
	if err != nil {
		t.Fatal(err)
	}

	s.StartRecording()
	s.Keys().Press(sim.KeyRight)
	s.Step()
	s.Step()

	stopForExit(s)
	if st := s.Status(); st.State != sim.Idle {
		t.Fatalf("still recording after quit: %v", st.State)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := sp.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("spooled %d recordings (%v), want 1", len(entries), err)
	}
	if len(entries[0].Points) != 3 {
		t.Errorf("spooled recording has %d points, want 3", len(entries[0].Points))
	}

	// nothing to stop when idle
	stopForExit(s)
	if got := len(s.Pending()); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

type fixedPosition struct {
	pos *models.UAVPosition
	err error
}

func (f fixedPosition) LatestPosition(context.Context) (*models.UAVPosition, error) {
	return f.pos, f.err
}

func TestResumePosition(t *testing.T) {
	fallback := spatial.NewWaypoint(-7.7956, 110.3695)
	tests := []struct {
		name    string
		src     fixedPosition
		want    spatial.Waypoint
		wantErr bool
	}{
		{"last position", fixedPosition{pos: &models.UAVPosition{ID: 3, Latitude: 1.5, Longitude: 2.5}}, spatial.NewWaypoint(1.5, 2.5), false},
		{"empty log", fixedPosition{}, fallback, false},
		{"unreachable", fixedPosition{err: errors.New("connection refused")}, fallback, true},
		{"out of range", fixedPosition{pos: &models.UAVPosition{ID: 1, Latitude: 95}}, fallback, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resumePosition(context.Background(), tt.src, fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
