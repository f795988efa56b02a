package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/repository"
)

// DefaultHistoryLimit is used when a history request names no usable limit
const DefaultHistoryLimit = 100

// UAVPositionService handles the position telemetry log
type UAVPositionService struct {
	repo         *repository.UAVPositionRepository
	historyLimit int
	metrics      MetricsRecorder
	logger       logging.Logger
}

// NewUAVPositionService creates a new position service. maxHistory caps
// history reads; zero means 1000.
func NewUAVPositionService(repo *repository.UAVPositionRepository, maxHistory int, metrics MetricsRecorder, logger logging.Logger) *UAVPositionService {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	if logger == nil {
		logger = logging.Noop()
	}
	return &UAVPositionService{
		repo:         repo,
		historyLimit: maxHistory,
		metrics:      metricsOrNoop(metrics),
		logger:       logger.With(logging.String("component", "uav_position")),
	}
}

// Record appends a position. Altitude, heading and speed default to 0 and
// the timestamp to the current time.
func (s *UAVPositionService) Record(ctx context.Context, req models.UAVPositionRequest) (int64, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return 0, fmt.Errorf("%w: latitude and longitude are required", ErrValidation)
	}
	lat, lng := *req.Latitude, *req.Longitude
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, fmt.Errorf("%w: latitude %v out of range", ErrValidation, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return 0, fmt.Errorf("%w: longitude %v out of range", ErrValidation, lng)
	}

	p := &models.UAVPosition{
		Latitude:  lat,
		Longitude: lng,
		Altitude:  req.Altitude,
		Heading:   req.Heading,
		Speed:     req.Speed,
		Timestamp: time.Now().UTC(),
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		p.Timestamp = req.Timestamp.UTC()
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("failed to record uav position: %w", err)
	}

	s.metrics.PositionRecorded()
	s.logger.Debug(ctx, "uav position recorded", logging.Int64("id", id))
	return id, nil
}

// Latest returns the most recent position, or nil when none was recorded
func (s *UAVPositionService) Latest(ctx context.Context) (*models.UAVPosition, error) {
	p, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest uav position: %w", err)
	}
	return p, nil
}

// History returns up to limit positions, newest first
func (s *UAVPositionService) History(ctx context.Context, limit int) ([]models.UAVPosition, error) {
	positions, err := s.repo.History(ctx, s.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get uav position history: %w", err)
	}
	return positions, nil
}

// ClampLimit maps a requested history size onto the allowed range
func (s *UAVPositionService) ClampLimit(limit int) int {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > s.historyLimit {
		return s.historyLimit
	}
	return limit
}
