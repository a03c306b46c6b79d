package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/folio/backend/internal/contracts"
)

// ReportRepository implements contracts.ReportRepository
// ⭐ SSOT: daily_reports 저장/조회는 여기서만
type ReportRepository struct {
	db DBTX
}

// NewReportRepository creates a new report repository
func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ contracts.ReportRepository = (*ReportRepository)(nil)

// FindDailyReport returns (nil, nil) when no report exists for the key
func (r *ReportRepository) FindDailyReport(ctx context.Context, userID string, date time.Time) (*contracts.DailyReportRecord, error) {
	query := `
		SELECT id::text, user_id, report_date, portfolio_value, change, change_percent,
		       significant_movers, sector_performance, summary,
		       email_sent, email_sent_at, created_at
		FROM daily_reports
		WHERE user_id = $1 AND report_date = $2
	`

	var (
		rec     contracts.DailyReportRecord
		movers  []byte
		sectors []byte
	)
	err := r.db.QueryRow(ctx, query, userID, date).Scan(
		&rec.ID, &rec.UserID, &rec.ReportDate, &rec.PortfolioValue, &rec.Change, &rec.ChangePercent,
		&movers, &sectors, &rec.Summary,
		&rec.EmailSent, &rec.EmailSentAt, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find daily report: %w", err)
	}

	if err := json.Unmarshal(movers, &rec.SignificantMovers); err != nil {
		return nil, fmt.Errorf("decode significant_movers: %w", err)
	}
	if err := json.Unmarshal(sectors, &rec.SectorPerformance); err != nil {
		return nil, fmt.Errorf("decode sector_performance: %w", err)
	}

	return &rec, nil
}

// CreateDailyReport inserts an unsent report. A concurrent or repeated
// insert for the same (user, date) loses to the unique index and returns
// contracts.ErrReportExists.
func (r *ReportRepository) CreateDailyReport(ctx context.Context, report *contracts.DailyReport) (*contracts.DailyReportRecord, error) {
	movers, err := json.Marshal(nonNil(report.SignificantMovers))
	if err != nil {
		return nil, fmt.Errorf("encode significant_movers: %w", err)
	}
	sectors, err := json.Marshal(nonNil(report.SectorPerformance))
	if err != nil {
		return nil, fmt.Errorf("encode sector_performance: %w", err)
	}

	query := `
		INSERT INTO daily_reports (
			user_id, report_date, portfolio_value, change, change_percent,
			significant_movers, sector_performance, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text, created_at
	`

	rec := &contracts.DailyReportRecord{DailyReport: *report}
	err = r.db.QueryRow(ctx, query,
		report.UserID, report.ReportDate, report.PortfolioValue, report.Change, report.ChangePercent,
		movers, sectors, report.Summary,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: user %s on %s", contracts.ErrReportExists, report.UserID, report.ReportDate.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to create daily report: %w", err)
	}

	return rec, nil
}

// ClaimEmailSend takes the send lease with a single conditional UPDATE,
// so exactly one concurrent caller sees a row affected. A lease older than
// staleBefore is treated as abandoned.
func (r *ReportRepository) ClaimEmailSend(ctx context.Context, reportID string, at, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE daily_reports
		SET email_claimed_at = $2
		WHERE id = $1::uuid
		  AND NOT email_sent
		  AND (email_claimed_at IS NULL OR email_claimed_at < $3)
	`

	tag, err := r.db.Exec(ctx, query, reportID, at, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim report %s: %w", reportID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseEmailClaim clears the lease of an unsent report
func (r *ReportRepository) ReleaseEmailClaim(ctx context.Context, reportID string) error {
	query := `
		UPDATE daily_reports
		SET email_claimed_at = NULL
		WHERE id = $1::uuid AND NOT email_sent
	`

	if _, err := r.db.Exec(ctx, query, reportID); err != nil {
		return fmt.Errorf("failed to release claim on report %s: %w", reportID, err)
	}
	return nil
}

// MarkEmailSent flags a report as delivered
func (r *ReportRepository) MarkEmailSent(ctx context.Context, reportID string, at time.Time) error {
	query := `
		UPDATE daily_reports
		SET email_sent = true, email_sent_at = $2, email_claimed_at = NULL
		WHERE id = $1::uuid
	`

	tag, err := r.db.Exec(ctx, query, reportID, at)
	if err != nil {
		return fmt.Errorf("failed to mark report %s sent: %w", reportID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", contracts.ErrReportNotFound, reportID)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
