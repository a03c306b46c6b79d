// Package postgres implements the repositories over pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the repositories use; pgxmock pools
// satisfy it in tests
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories sharing one pool
type Store struct {
	Users     *UserRepository
	Reports   *ReportRepository
	Positions *PositionRepository
}

// NewStore wires every repository to db
func NewStore(db DBTX) *Store {
	return &Store{
		Users:     NewUserRepository(db),
		Reports:   NewReportRepository(db),
		Positions: NewPositionRepository(db),
	}
}

const uniqueViolation = "23505"
