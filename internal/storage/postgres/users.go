package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/folio/backend/internal/contracts"
)

// UserRepository implements contracts.UserRepository
// ⭐ SSOT: 사용자/알림 설정 조회는 여기서만
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

var _ contracts.UserRepository = (*UserRepository)(nil)

const selectUserColumns = `
	u.id, u.email, u.name,
	COALESCE(p.email_enabled, false),
	COALESCE(p.daily_update_enabled, false),
	COALESCE(p.weekends_enabled, false),
	COALESCE(p.alert_threshold, 5)`

// FindEligibleUsers returns opted-in users holding at least one position
func (r *UserRepository) FindEligibleUsers(ctx context.Context, isWeekend bool) ([]contracts.EligibleUser, error) {
	query := `
		SELECT` + selectUserColumns + `
		FROM users u
		JOIN notification_preferences p ON p.user_id = u.id
		WHERE p.email_enabled
		  AND p.daily_update_enabled
		  AND ($1 = false OR p.weekends_enabled)
		  AND EXISTS (SELECT 1 FROM positions pos WHERE pos.user_id = u.id)
		ORDER BY u.created_at, u.id
	`

	rows, err := r.db.Query(ctx, query, isWeekend)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible users: %w", err)
	}
	defer rows.Close()

	var users []contracts.EligibleUser
	for rows.Next() {
		var u contracts.EligibleUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name,
			&u.EmailEnabled, &u.DailyUpdateEnabled, &u.WeekendsEnabled, &u.AlertThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetUser returns the user's current preferences; a user without a
// preferences row reads as fully opted out
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*contracts.EligibleUser, error) {
	query := `
		SELECT` + selectUserColumns + `
		FROM users u
		LEFT JOIN notification_preferences p ON p.user_id = u.id
		WHERE u.id = $1
	`

	var u contracts.EligibleUser
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Email, &u.Name,
		&u.EmailEnabled, &u.DailyUpdateEnabled, &u.WeekendsEnabled, &u.AlertThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &u, nil
}
