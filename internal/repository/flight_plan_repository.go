package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const flightPlanColumns = `id, name, description, shape_type, waypoints, created_at, updated_at`

// FlightPlanRepository handles database operations for flight plans
type FlightPlanRepository struct {
	db *sql.DB
}

// NewFlightPlanRepository creates a new flight plan repository
func NewFlightPlanRepository(db *sql.DB) *FlightPlanRepository {
	return &FlightPlanRepository{db: db}
}

// List retrieves all flight plans, newest first
func (r *FlightPlanRepository) List(ctx context.Context) ([]models.FlightPlan, error) {
	query := `SELECT ` + flightPlanColumns + ` FROM flight_plans ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight plans: %w", err)
	}
	defer rows.Close()

	plans := []models.FlightPlan{}
	for rows.Next() {
		p, err := scanFlightPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flight plans: %w", err)
	}

	return plans, nil
}

// GetByID retrieves a single flight plan by ID. It returns nil, nil when no row matches.
func (r *FlightPlanRepository) GetByID(ctx context.Context, id int64) (*models.FlightPlan, error) {
	query := `SELECT ` + flightPlanColumns + ` FROM flight_plans WHERE id = ?`

	p, err := scanFlightPlan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a flight plan and returns its new ID
func (r *FlightPlanRepository) Create(ctx context.Context, plan *models.FlightPlan) (int64, error) {
	waypoints, err := spatial.EncodeWaypoints(plan.Waypoints)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO flight_plans (name, description, shape_type, waypoints, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		plan.Name, plan.Description, string(plan.ShapeType), waypoints,
		database.FormatTime(plan.CreatedAt), database.FormatTime(plan.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert flight plan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get flight plan id: %w", err)
	}
	return id, nil
}

// Update replaces the editable fields of a flight plan. It reports whether a row was changed.
func (r *FlightPlanRepository) Update(ctx context.Context, plan *models.FlightPlan) (bool, error) {
	waypoints, err := spatial.EncodeWaypoints(plan.Waypoints)
	if err != nil {
		return false, err
	}

	query := `UPDATE flight_plans
		SET name = ?, description = ?, shape_type = ?, waypoints = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		plan.Name, plan.Description, string(plan.ShapeType), waypoints,
		database.FormatTime(plan.UpdatedAt), plan.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update flight plan %d: %w", plan.ID, err)
	}
	return affected(result)
}

// Delete removes a flight plan. It reports whether a row was removed.
func (r *FlightPlanRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flight_plans WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete flight plan %d: %w", id, err)
	}
	return affected(result)
}

func scanFlightPlan(s rowScanner) (*models.FlightPlan, error) {
	var (
		p                    models.FlightPlan
		shapeType, waypoints string
		createdAt, updatedAt string
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &shapeType, &waypoints, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan flight plan: %w", err)
	}

	p.ShapeType = spatial.Kind(shapeType)
	if p.Waypoints, err = spatial.DecodeWaypoints(waypoints); err != nil {
		return nil, fmt.Errorf("flight plan %d: %w", p.ID, err)
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("flight plan %d: %w", p.ID, err)
	}
	if p.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("flight plan %d: %w", p.ID, err)
	}
	return &p, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}
