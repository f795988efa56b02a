package sim

import (
	"errors"
	"math"
	"time"

	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// RecorderState is Idle or Recording
type RecorderState int

const (
	Idle RecorderState = iota
	Recording
)

func (s RecorderState) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// ErrTooShort is returned by Stop when fewer than two points were captured
var ErrTooShort = errors.New("recording has fewer than 2 points")

// ErrNotRecording is returned by Stop while idle
var ErrNotRecording = errors.New("not recording")

// Capture is a finished recording ready to be saved
type Capture struct {
	Points    []spatial.Waypoint
	StartedAt time.Time
	Duration  int64   // Whole seconds, rounded
	Distance  float64 // Meters, rounded
}

// Recorder buffers positions between Start and Stop. Only every Nth
// accepted position is kept, N being the sampling interval.
type Recorder struct {
	state     RecorderState
	interval  int
	ticks     int
	startedAt time.Time
	points    []spatial.Waypoint
}

// NewRecorder returns an idle recorder keeping every interval-th point.
// An interval below 1 keeps all of them.
func NewRecorder(interval int) *Recorder {
	if interval < 1 {
		interval = 1
	}
	return &Recorder{interval: interval}
}

// State returns the current state
func (r *Recorder) State() RecorderState { return r.state }

// Len returns the number of buffered points
func (r *Recorder) Len() int { return len(r.points) }

// Start begins a recording at pos. Starting while recording restarts the buffer.
func (r *Recorder) Start(pos spatial.Waypoint, now time.Time) {
	r.state = Recording
	r.ticks = 0
	r.startedAt = now
	r.points = []spatial.Waypoint{pos}
}

// Observe offers the position reached on a tick that moved the vehicle
func (r *Recorder) Observe(pos spatial.Waypoint) {
	if r.state != Recording {
		return
	}
	r.ticks++
	if r.ticks%r.interval == 0 {
		r.points = append(r.points, pos)
	}
}

// Stop ends the recording. pos is appended when sampling skipped it, so
// the capture always ends where the vehicle stopped. The buffer is cleared
// and the recorder is Idle afterwards whatever the result.
func (r *Recorder) Stop(pos spatial.Waypoint, now time.Time) (*Capture, error) {
	if r.state != Recording {
		return nil, ErrNotRecording
	}
	points := r.points
	startedAt := r.startedAt

	r.state = Idle
	r.ticks = 0
	r.points = nil

	if last := points[len(points)-1]; last != pos {
		points = append(points, pos)
	}
	if len(points) < 2 {
		return nil, ErrTooShort
	}

	return &Capture{
		Points:    points,
		StartedAt: startedAt,
		Duration:  int64(math.Round(now.Sub(startedAt).Seconds())),
		Distance:  spatial.RoundMeters(spatial.PathLength(points)),
	}, nil
}
