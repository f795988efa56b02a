package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/repository"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// FlightPlanOptions tunes the plan read cache
type FlightPlanOptions struct {
	CacheSize int
	CacheTTL  time.Duration
}

// FlightPlanService handles business logic for flight plans
type FlightPlanService struct {
	repo    *repository.FlightPlanRepository
	cache   *expirable.LRU[int64, models.FlightPlan]
	creates singleflight.Group
	metrics MetricsRecorder
	logger  logging.Logger

	// writes counts committed updates and deletes; a read only fills the
	// cache when no write landed while it was querying
	cacheMu sync.Mutex
	writes  uint64
	// beforeFill runs between the database read and the cache fill in tests
	beforeFill func()
}

// NewFlightPlanService creates a new flight plan service
func NewFlightPlanService(repo *repository.FlightPlanRepository, opts FlightPlanOptions, metrics MetricsRecorder, logger logging.Logger) *FlightPlanService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Noop()
	}
	return &FlightPlanService{
		repo:    repo,
		cache:   expirable.NewLRU[int64, models.FlightPlan](opts.CacheSize, nil, opts.CacheTTL),
		metrics: metricsOrNoop(metrics),
		logger:  logger.With(logging.String("component", "flight_plans")),
	}
}

// List returns every flight plan, newest first
func (s *FlightPlanService) List(ctx context.Context) ([]models.FlightPlan, error) {
	plans, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flight plans: %w", err)
	}
	return plans, nil
}

// Get returns one flight plan, served from the cache when possible
func (s *FlightPlanService) Get(ctx context.Context, id int64) (*models.FlightPlan, error) {
	if plan, ok := s.cache.Get(id); ok {
		s.metrics.PlanCacheLookup(true)
		plan.Waypoints = slices.Clone(plan.Waypoints)
		return &plan, nil
	}
	s.metrics.PlanCacheLookup(false)

	s.cacheMu.Lock()
	seen := s.writes
	s.cacheMu.Unlock()

	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get flight plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("flight plan %d: %w", id, ErrNotFound)
	}

	if s.beforeFill != nil {
		s.beforeFill()
	}
	cached := *plan
	cached.Waypoints = slices.Clone(plan.Waypoints)
	s.cacheMu.Lock()
	if s.writes == seen {
		s.cache.Add(id, cached)
	}
	s.cacheMu.Unlock()
	return plan, nil
}

// Create validates and stores a new flight plan. Identical requests that
// arrive while one is being stored share its result.
func (s *FlightPlanService) Create(ctx context.Context, req models.FlightPlanRequest) (int64, error) {
	plan, err := planFromRequest(req)
	if err != nil {
		return 0, err
	}

	key, err := createKey(plan)
	if err != nil {
		return 0, err
	}

	v, err, shared := s.creates.Do(key, func() (any, error) {
		now := time.Now().UTC()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		return s.repo.Create(ctx, plan)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create flight plan: %w", err)
	}

	id := v.(int64)
	if shared {
		s.logger.Info(ctx, "collapsed duplicate flight plan create", logging.Int64("id", id))
	} else {
		s.metrics.FlightPlanMutated("create")
		s.logger.Info(ctx, "flight plan created",
			logging.Int64("id", id),
			logging.String("shape_type", string(plan.ShapeType)),
			logging.Int("waypoints", len(plan.Waypoints)),
		)
	}
	return id, nil
}

// Update replaces the editable fields of an existing plan
func (s *FlightPlanService) Update(ctx context.Context, id int64, req models.FlightPlanRequest) error {
	plan, err := planFromRequest(req)
	if err != nil {
		return err
	}
	plan.ID = id
	plan.UpdatedAt = time.Now().UTC()

	ok, err := s.repo.Update(ctx, plan)
	s.invalidate(id)
	if err != nil {
		return fmt.Errorf("failed to update flight plan: %w", err)
	}
	if !ok {
		return fmt.Errorf("flight plan %d: %w", id, ErrNotFound)
	}

	s.metrics.FlightPlanMutated("update")
	s.logger.Info(ctx, "flight plan updated", logging.Int64("id", id))
	return nil
}

// Delete removes a plan
func (s *FlightPlanService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	s.invalidate(id)
	if err != nil {
		return fmt.Errorf("failed to delete flight plan: %w", err)
	}
	if !ok {
		return fmt.Errorf("flight plan %d: %w", id, ErrNotFound)
	}

	s.metrics.FlightPlanMutated("delete")
	s.logger.Info(ctx, "flight plan deleted", logging.Int64("id", id))
	return nil
}

// Shape reconstructs the renderable shape of a stored plan
func (s *FlightPlanService) Shape(ctx context.Context, id int64) (spatial.Shape, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return reconstruct(plan)
}

// Feature exports a plan as a GeoJSON feature
func (s *FlightPlanService) Feature(ctx context.Context, id int64) (*geojson.Feature, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	shape, err := reconstruct(plan)
	if err != nil {
		return nil, err
	}

	f := spatial.ShapeFeature(shape)
	f.ID = plan.ID
	f.Properties["name"] = plan.Name
	if plan.Description != "" {
		f.Properties["description"] = plan.Description
	}
	return f, nil
}

func (s *FlightPlanService) invalidate(id int64) {
	s.cacheMu.Lock()
	s.writes++
	s.cache.Remove(id)
	s.cacheMu.Unlock()
}

func reconstruct(plan *models.FlightPlan) (spatial.Shape, error) {
	shape, ok := spatial.Reconstruct(plan.ShapeType, plan.Waypoints)
	if !ok {
		return nil, fmt.Errorf("flight plan %d (%s, %d waypoints): %w",
			plan.ID, plan.ShapeType, len(plan.Waypoints), ErrNotReconstructible)
	}
	return shape, nil
}

func planFromRequest(req models.FlightPlanRequest) (*models.FlightPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(req.Waypoints) == 0 {
		return nil, fmt.Errorf("%w: waypoints must not be empty", ErrValidation)
	}

	kind, err := spatial.ParseKind(req.ShapeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := spatial.ValidateStored(kind, req.Waypoints); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return &models.FlightPlan{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		ShapeType:   kind,
		Waypoints:   req.Waypoints,
	}, nil
}

func createKey(plan *models.FlightPlan) (string, error) {
	waypoints, err := spatial.EncodeWaypoints(plan.Waypoints)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{plan.Name, plan.Description, string(plan.ShapeType), waypoints}, "\x00"), nil
}
