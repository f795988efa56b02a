package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/repository"
	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/internal/stats"
)

// distanceTolerance is how far a client-reported distance may drift from
// the recomputed one before it is logged
const distanceTolerance = 1.0

// TrajectoryService handles business logic for recorded trajectories
type TrajectoryService struct {
	repo    *repository.TrajectoryRepository
	creates singleflight.Group
	metrics MetricsRecorder
	logger  logging.Logger
}

// NewTrajectoryService creates a new trajectory service
func NewTrajectoryService(repo *repository.TrajectoryRepository, metrics MetricsRecorder, logger logging.Logger) *TrajectoryService {
	if logger == nil {
		logger = logging.Noop()
	}
	return &TrajectoryService{
		repo:    repo,
		metrics: metricsOrNoop(metrics),
		logger:  logger.With(logging.String("component", "trajectories")),
	}
}

// List returns every trajectory, newest first
func (s *TrajectoryService) List(ctx context.Context) ([]models.Trajectory, error) {
	trajectories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trajectories: %w", err)
	}
	return trajectories, nil
}

// Get returns a single trajectory
func (s *TrajectoryService) Get(ctx context.Context, id int64) (*models.Trajectory, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trajectory: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("trajectory %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// Create stores a recorded path. The distance is always derived from the
// points; a reported distance is only compared against it.
func (s *TrajectoryService) Create(ctx context.Context, req models.TrajectoryRequest) (*models.Trajectory, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(req.Points) < 2 {
		return nil, fmt.Errorf("%w: a trajectory needs at least 2 points, got %d", ErrValidation, len(req.Points))
	}
	for i, p := range req.Points {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: point %d %s out of range", ErrValidation, i, p)
		}
	}
	if req.Duration < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}

	distance := spatial.RoundMeters(spatial.PathLength(req.Points))
	if req.Distance != nil && math.Abs(*req.Distance-distance) > distanceTolerance {
		s.logger.Warn(ctx, "reported trajectory distance differs from computed",
			logging.Float("reported", *req.Distance),
			logging.Float("computed", distance),
		)
	}

	t := &models.Trajectory{
		Name:     name,
		Points:   req.Points,
		Duration: req.Duration,
		Distance: distance,
	}

	encoded, err := spatial.EncodeWaypoints(t.Points)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{name, strconv.FormatInt(t.Duration, 10), encoded}, "\x00")

	t.CreatedAt = time.Now().UTC()
	v, err, shared := s.creates.Do(key, func() (any, error) {
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create trajectory: %w", err)
	}
	t.ID = v.(int64)

	if shared {
		s.logger.Info(ctx, "collapsed duplicate trajectory create", logging.Int64("id", t.ID))
		return t, nil
	}

	s.metrics.TrajectorySaved(distance)
	s.logger.Info(ctx, "trajectory saved",
		logging.Int64("id", t.ID),
		logging.Int("points", len(t.Points)),
		logging.Int64("duration_s", t.Duration),
		logging.Float("distance_m", distance),
	)
	return t, nil
}

// Delete removes one trajectory
func (s *TrajectoryService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete trajectory: %w", err)
	}
	if !ok {
		return fmt.Errorf("trajectory %d: %w", id, ErrNotFound)
	}

	s.metrics.TrajectoriesDeleted(1)
	s.logger.Info(ctx, "trajectory deleted", logging.Int64("id", id))
	return nil
}

// BulkDelete removes the listed trajectories atomically and reports how
// many existed. Unknown ids are skipped.
func (s *TrajectoryService) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", ErrValidation)
	}
	for _, id := range ids {
		if id <= 0 {
			return 0, fmt.Errorf("%w: invalid trajectory id %d", ErrValidation, id)
		}
	}

	deleted, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trajectories: %w", err)
	}

	s.metrics.TrajectoriesDeleted(deleted)
	s.logger.Info(ctx, "trajectories deleted",
		logging.Int("requested", len(ids)),
		logging.Int64("deleted", deleted),
	)
	return deleted, nil
}

// Summary aggregates distance and duration over all trajectories
func (s *TrajectoryService) Summary(ctx context.Context) (*models.TrajectorySummary, error) {
	durations, distances, err := s.repo.Measures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize trajectories: %w", err)
	}

	summary := &models.TrajectorySummary{
		Count:           len(distances),
		DistanceMeters:  stats.Summarize(distances),
		DurationSeconds: stats.Summarize(durations),
		GeneratedAt:     time.Now().UTC(),
	}
	if total := summary.DurationSeconds.Sum; total > 0 {
		summary.AverageSpeedMps = summary.DistanceMeters.Sum / total
	}
	return summary, nil
}

// Feature exports a trajectory as a GeoJSON line. A positive
// simplifyMeters thins the line before export; the reported distance is
// always the stored one.
func (s *TrajectoryService) Feature(ctx context.Context, id int64, simplifyMeters float64) (*geojson.Feature, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	points := t.Points
	if simplifyMeters > 0 {
		points = spatial.SimplifyPath(points, simplifyMeters)
	}

	f := spatial.PathFeature(points)
	f.ID = t.ID
	f.Properties["name"] = t.Name
	f.Properties["durationSeconds"] = t.Duration
	f.Properties["distanceMeters"] = t.Distance
	f.Properties["recordedPoints"] = len(t.Points)
	return f, nil
}
