package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/models"
)

const uavPositionColumns = `id, latitude, longitude, altitude, heading, speed, timestamp`

// UAVPositionRepository handles the append-only UAV position log
type UAVPositionRepository struct {
	db *sql.DB
}

// NewUAVPositionRepository creates a new UAV position repository
func NewUAVPositionRepository(db *sql.DB) *UAVPositionRepository {
	return &UAVPositionRepository{db: db}
}

// Create appends a position and returns its ID
func (r *UAVPositionRepository) Create(ctx context.Context, p *models.UAVPosition) (int64, error) {
	query := `INSERT INTO uav_positions (latitude, longitude, altitude, heading, speed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		p.Latitude, p.Longitude, p.Altitude, p.Heading, p.Speed, database.FormatTime(p.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert uav position: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get uav position id: %w", err)
	}
	return id, nil
}

// Latest returns the most recently appended position, or nil when the log is empty
func (r *UAVPositionRepository) Latest(ctx context.Context) (*models.UAVPosition, error) {
	query := `SELECT ` + uavPositionColumns + ` FROM uav_positions ORDER BY id DESC LIMIT 1`

	p, err := scanUAVPosition(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// History returns up to limit positions, newest first
func (r *UAVPositionRepository) History(ctx context.Context, limit int) ([]models.UAVPosition, error) {
	query := `SELECT ` + uavPositionColumns + ` FROM uav_positions ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query uav positions: %w", err)
	}
	defer rows.Close()

	positions := []models.UAVPosition{}
	for rows.Next() {
		p, err := scanUAVPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate uav positions: %w", err)
	}

	return positions, nil
}

func scanUAVPosition(s rowScanner) (*models.UAVPosition, error) {
	var (
		p         models.UAVPosition
		timestamp string
	)
	err := s.Scan(&p.ID, &p.Latitude, &p.Longitude, &p.Altitude, &p.Heading, &p.Speed, &timestamp)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan uav position: %w", err)
	}

	if p.Timestamp, err = database.ParseTime(timestamp); err != nil {
		return nil, fmt.Errorf("uav position %d: %w", p.ID, err)
	}
	return &p, nil
}
