package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

const trajectoryColumns = `id, name, points, duration, distance, created_at`

// TrajectoryRepository handles database operations for recorded trajectories
type TrajectoryRepository struct {
	db *sql.DB
}

// NewTrajectoryRepository creates a new trajectory repository
func NewTrajectoryRepository(db *sql.DB) *TrajectoryRepository {
	return &TrajectoryRepository{db: db}
}

// List retrieves all trajectories, newest first
func (r *TrajectoryRepository) List(ctx context.Context) ([]models.Trajectory, error) {
	query := `SELECT ` + trajectoryColumns + ` FROM trajectories ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trajectories: %w", err)
	}
	defer rows.Close()

	trajectories := []models.Trajectory{}
	for rows.Next() {
		t, err := scanTrajectory(rows)
		if err != nil {
			return nil, err
		}
		trajectories = append(trajectories, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trajectories: %w", err)
	}

	return trajectories, nil
}

// GetByID retrieves a single trajectory. It returns nil, nil when no row matches.
func (r *TrajectoryRepository) GetByID(ctx context.Context, id int64) (*models.Trajectory, error) {
	query := `SELECT ` + trajectoryColumns + ` FROM trajectories WHERE id = ?`

	t, err := scanTrajectory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a trajectory and returns its new ID
func (r *TrajectoryRepository) Create(ctx context.Context, t *models.Trajectory) (int64, error) {
	points, err := spatial.EncodeWaypoints(t.Points)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO trajectories (name, points, duration, distance, created_at)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, t.Name, points, t.Duration, t.Distance, database.FormatTime(t.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert trajectory: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get trajectory id: %w", err)
	}
	return id, nil
}

// Delete removes a trajectory. It reports whether a row was removed.
func (r *TrajectoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trajectories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete trajectory %d: %w", id, err)
	}
	return affected(result)
}

// BulkDelete removes several trajectories in one transaction; either all
// listed rows that exist are removed or none are.
func (r *TrajectoryRepository) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64

	err := database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM trajectories WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			result, err := stmt.ExecContext(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to delete trajectory %d: %w", id, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get affected rows: %w", err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// Measures returns duration and distance of every trajectory without
// loading the points
func (r *TrajectoryRepository) Measures(ctx context.Context) (durations, distances []float64, err error) {
	rows, err := r.db.QueryContext(ctx, `SELECT duration, distance FROM trajectories`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query trajectory measures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			duration int64
			distance float64
		)
		if err := rows.Scan(&duration, &distance); err != nil {
			return nil, nil, fmt.Errorf("failed to scan trajectory measures: %w", err)
		}
		durations = append(durations, float64(duration))
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate trajectory measures: %w", err)
	}
	return durations, distances, nil
}

func scanTrajectory(s rowScanner) (*models.Trajectory, error) {
	var (
		t                 models.Trajectory
		points, createdAt string
	)
	err := s.Scan(&t.ID, &t.Name, &points, &t.Duration, &t.Distance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan trajectory: %w", err)
	}

	if t.Points, err = spatial.DecodeWaypoints(points); err != nil {
		return nil, fmt.Errorf("trajectory %d: %w", t.ID, err)
	}
	if t.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("trajectory %d: %w", t.ID, err)
	}
	return &t, nil
}
