// Package sim runs the UAV flight simulation: keyboard input is sampled on
// a fixed tick, the vehicle moves, recordings are captured and uploaded,
// and telemetry is posted to the API.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/uav-ground-control/internal/client"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/internal/spool"
)

// DefaultStart is the position the vehicle spawns at
var DefaultStart = spatial.NewWaypoint(-7.7956, 110.3695)

const (
	DefaultTick = 50 * time.Millisecond
	saveQueue   = 16
)

// ErrRetryInProgress is returned when a pending recording is already being
// uploaded or is asked to be discarded mid-upload
var ErrRetryInProgress = errors.New("upload of this recording is already in progress")

// Saver persists finished recordings
type Saver interface {
	SaveTrajectory(ctx context.Context, req models.TrajectoryRequest) (*models.TrajectoryCreatedResponse, error)
}

// Telemetry receives position snapshots
type Telemetry interface {
	PostPosition(ctx context.Context, req models.UAVPositionRequest) (int64, error)
}

// Options configures a Simulator. Zero values select defaults.
type Options struct {
	Start          spatial.Waypoint
	Speed          float64
	Tick           time.Duration
	SampleEvery    int
	TelemetryEvery time.Duration // 0 disables telemetry
	Spool          *spool.Spool
	Logger         logging.Logger
	Now            func() time.Time
}

// Status is what the front end renders
type Status struct {
	Position   spatial.Waypoint
	Heading    float64
	Speed      float64
	SpeedLabel string
	Moving     bool
	State      RecorderState
	Points     int
	Pending    int
	Message    string
}

// Simulator owns the simulation state
type Simulator struct {
	keys      KeyState
	saver     Saver
	telemetry Telemetry
	spool     *spool.Spool
	logger    logging.Logger
	now       func() time.Time
	tick      time.Duration
	telEvery  time.Duration

	mu      sync.Mutex
	pos     spatial.Waypoint
	heading float64
	speed   float64
	moving  bool
	rec      *Recorder
	pending  []spool.Entry
	retrying map[string]bool
	closed   bool
	message  string

	saves chan spool.Entry
}

// New creates a simulator. Recordings left in the spool by an earlier run
// are restored as pending.
func New(saver Saver, telemetry Telemetry, opts Options) (*Simulator, error) {
	if opts.Start == (spatial.Waypoint{}) {
		opts.Start = DefaultStart
	}
	if !opts.Start.Valid() {
		return nil, fmt.Errorf("invalid start position %s", opts.Start)
	}
	if opts.Speed <= 0 {
		opts.Speed = DefaultSpeed
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Simulator{
		saver:     saver,
		telemetry: telemetry,
		spool:     opts.Spool,
		logger:    opts.Logger.With(logging.String("component", "simulator")),
		now:       opts.Now,
		tick:      opts.Tick,
		telEvery:  opts.TelemetryEvery,
		pos:       opts.Start,
		speed:     clampSpeed(opts.Speed),
		rec:       NewRecorder(opts.SampleEvery),
		retrying:  make(map[string]bool),
		saves:     make(chan spool.Entry, saveQueue),
	}

	if s.spool != nil {
		entries, err := s.spool.List()
		if err != nil {
			s.logger.Warn(context.Background(), "some spooled recordings could not be read", logging.Err(err))
		}
		s.pending = entries
	}
	return s, nil
}

// Keys returns the key state the input handler writes
func (s *Simulator) Keys() *KeyState { return &s.keys }

// Run drives the tick loop, the upload worker and telemetry until ctx ends.
// Recordings still queued for upload when ctx ends are parked as pending.
func (s *Simulator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.Step()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				s.drain()
				return nil
			case e := <-s.saves:
				s.save(ctx, e)
			}
		}
	})

	if s.telemetry != nil && s.telEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(s.telEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.report(ctx)
				}
			}
		})
	}

	return g.Wait()
}

// Step advances the simulation by one tick
func (s *Simulator) Step() {
	in := s.keys.Snapshot(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	dLat, dLng := in.Delta(s.speed)
	if dLat == 0 && dLng == 0 {
		s.moving = false
		return
	}

	next := spatial.NewWaypoint(clamp(s.pos.Lat+dLat, -90, 90), wrapLng(s.pos.Lng+dLng))
	if next == s.pos {
		s.moving = false
		return
	}
	s.heading = spatial.Bearing(s.pos, next)
	s.pos = next
	s.moving = true
	s.rec.Observe(next)
}

// Faster doubles the speed
func (s *Simulator) Faster() {
	s.mu.Lock()
	s.speed = Faster(s.speed)
	s.message = "Speed: " + SpeedLabel(s.speed)
	s.mu.Unlock()
}

// Slower halves the speed
func (s *Simulator) Slower() {
	s.mu.Lock()
	s.speed = Slower(s.speed)
	s.message = "Speed: " + SpeedLabel(s.speed)
	s.mu.Unlock()
}

// StartRecording begins capturing the path at the current position
func (s *Simulator) StartRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Simulator) startLocked() {
	s.rec.Start(s.pos, s.now())
	s.message = "Recording started"
	s.logger.Info(context.Background(), "recording started", logging.String("position", s.pos.String()))
}

// StopRecording ends the capture and queues it for upload. Captures with
// fewer than two points are dropped with ErrTooShort.
func (s *Simulator) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Simulator) stopLocked() error {
	now := s.now()
	capture, err := s.rec.Stop(s.pos, now)
	if err != nil {
		if errors.Is(err, ErrTooShort) {
			s.message = "Recording too short, nothing saved"
		}
		return err
	}

	e := spool.Entry{
		Name:       "Simulation_" + capture.StartedAt.Local().Format("2006-01-02 15:04:05"),
		Points:     capture.Points,
		Duration:   capture.Duration,
		Distance:   capture.Distance,
		RecordedAt: now,
	}
	s.message = fmt.Sprintf("Saving %d points...", len(e.Points))

	if s.closed {
		e.LastError = "simulator stopped before upload"
		s.park(e)
		return nil
	}
	select {
	case s.saves <- e:
	default:
		// upload worker is backed up; park it for a manual retry
		e.LastError = "upload queue full"
		s.park(e)
	}
	return nil
}

// ToggleRecording starts or stops recording
func (s *Simulator) ToggleRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.State() == Recording {
		return s.stopLocked()
	}
	s.startLocked()
	return nil
}

// Pending returns recordings whose upload failed
func (s *Simulator) Pending() []spool.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]spool.Entry, len(s.pending))
	copy(out, s.pending)
	return out
}

// Retry uploads a pending recording again. Only one upload per recording
// runs at a time; a second call returns ErrRetryInProgress.
func (s *Simulator) Retry(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.pendingIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return spool.ErrNotFound
	}
	if s.retrying[id] {
		s.mu.Unlock()
		return ErrRetryInProgress
	}
	s.retrying[id] = true
	e := s.pending[idx]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.retrying, id)
		s.mu.Unlock()
	}()
	return s.save(ctx, e)
}

// Discard drops a pending recording without uploading it
func (s *Simulator) Discard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.pendingIndex(id)
	if idx < 0 {
		return spool.ErrNotFound
	}
	if s.retrying[id] {
		return ErrRetryInProgress
	}
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	if s.spool != nil {
		if err := s.spool.Remove(id); err != nil && !errors.Is(err, spool.ErrNotFound) {
			return err
		}
	}
	s.message = "Pending recording discarded"
	return nil
}

// SetMessage replaces the status line
func (s *Simulator) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Status returns a snapshot for rendering
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Position:   s.pos,
		Heading:    s.heading,
		Speed:      s.speed,
		SpeedLabel: SpeedLabel(s.speed),
		Moving:     s.moving,
		State:      s.rec.State(),
		Points:     s.rec.Len(),
		Pending:    len(s.pending),
		Message:    s.message,
	}
}

func (s *Simulator) save(ctx context.Context, e spool.Entry) error {
	distance := e.Distance
	resp, err := s.saver.SaveTrajectory(ctx, models.TrajectoryRequest{
		Name:     e.Name,
		Points:   e.Points,
		Duration: e.Duration,
		Distance: &distance,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, client.ErrRequestInFlight) && e.ID != "" && s.pendingIndex(e.ID) >= 0 {
		// another upload of the same recording owns it; leave the entry as is
		s.message = "Upload already in progress"
		return err
	}
	if err != nil {
		e.Attempts++
		e.LastError = err.Error()
		s.park(e)
		s.message = "Save failed: " + err.Error()
		s.logger.Warn(ctx, "trajectory upload failed",
			logging.String("name", e.Name),
			logging.Int("attempts", e.Attempts),
			logging.Err(err),
		)
		return err
	}

	if idx := s.pendingIndex(e.ID); e.ID != "" && idx >= 0 {
		s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
		if s.spool != nil {
			if err := s.spool.Remove(e.ID); err != nil && !errors.Is(err, spool.ErrNotFound) {
				s.logger.Warn(ctx, "failed to remove spooled recording", logging.String("id", e.ID), logging.Err(err))
			}
		}
	}

	s.message = fmt.Sprintf("Trajectory saved! Points: %d, Duration: %ds, Distance: %.0fm",
		len(e.Points), e.Duration, resp.Distance)
	s.logger.Info(ctx, "trajectory saved",
		logging.Int64("id", resp.ID),
		logging.Int("points", len(e.Points)),
		logging.Float("distance_m", resp.Distance),
	)
	return nil
}

// drain parks every recording still queued for upload and makes later
// stops park directly, since no worker is left to take them.
func (s *Simulator) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for {
		select {
		case e := <-s.saves:
			e.LastError = "simulator stopped before upload"
			s.park(e)
			s.logger.Info(context.Background(), "queued recording parked on shutdown", logging.String("name", e.Name))
		default:
			return
		}
	}
}

// park stores e in the pending list and the spool. Callers hold s.mu.
func (s *Simulator) park(e spool.Entry) {
	if s.spool != nil {
		if err := s.spool.Put(&e); err != nil {
			s.logger.Error(context.Background(), "failed to spool recording", logging.Err(err))
		}
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("mem-%d", e.RecordedAt.UnixNano())
	}
	if idx := s.pendingIndex(e.ID); idx >= 0 {
		s.pending[idx] = e
		return
	}
	s.pending = append(s.pending, e)
}

func (s *Simulator) pendingIndex(id string) int {
	for i := range s.pending {
		if s.pending[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Simulator) report(ctx context.Context) {
	s.mu.Lock()
	lat, lng := s.pos.Lat, s.pos.Lng
	req := models.UAVPositionRequest{Latitude: &lat, Longitude: &lng, Heading: s.heading}
	if s.moving {
		req.Speed = s.speed * spatial.MetersPerDegree / s.tick.Seconds()
	}
	s.mu.Unlock()

	ts := s.now().UTC()
	req.Timestamp = &ts
	if _, err := s.telemetry.PostPosition(ctx, req); err != nil && ctx.Err() == nil {
		s.logger.Debug(ctx, "telemetry post failed", logging.Err(err))
	}
}

func clampSpeed(v float64) float64 {
	return clamp(v, MinSpeed, MaxSpeed)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
