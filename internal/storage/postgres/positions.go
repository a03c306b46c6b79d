package postgres

import (
	"context"
	"fmt"

	"github.com/wonny/folio/backend/internal/contracts"
)

// PositionRepository implements contracts.PositionRepository
type PositionRepository struct {
	db DBTX
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

var _ contracts.PositionRepository = (*PositionRepository)(nil)

// ListPositions returns a user's holdings ordered by symbol
func (r *PositionRepository) ListPositions(ctx context.Context, userID string) ([]contracts.Position, error) {
	query := `
		SELECT id::text, user_id, symbol, quantity, avg_cost, COALESCE(sector, '')
		FROM positions
		WHERE user_id = $1
		ORDER BY symbol
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []contracts.Position
	for rows.Next() {
		var p contracts.Position
		if err := rows.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Quantity, &p.AvgCost, &p.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
