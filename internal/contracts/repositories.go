package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// UserRepository reads users and their notification preferences
type UserRepository interface {
	// FindEligibleUsers returns users with email and daily updates enabled
	// who hold at least one position. On weekends only weekend opt-ins.
	FindEligibleUsers(ctx context.Context, isWeekend bool) ([]EligibleUser, error)
	// GetUser returns ErrUserNotFound when the id is unknown
	GetUser(ctx context.Context, userID string) (*EligibleUser, error)
}

// ReportRepository persists daily reports
type ReportRepository interface {
	// FindDailyReport returns (nil, nil) when no record exists
	FindDailyReport(ctx context.Context, userID string, date time.Time) (*DailyReportRecord, error)
	// CreateDailyReport returns ErrReportExists on a duplicate (UserID, ReportDate)
	CreateDailyReport(ctx context.Context, report *DailyReport) (*DailyReportRecord, error)
	// ClaimEmailSend takes the send lease on an unsent report. It returns
	// false when the report is already sent or another claim newer than
	// staleBefore holds it.
	ClaimEmailSend(ctx context.Context, reportID string, at, staleBefore time.Time) (bool, error)
	// ReleaseEmailClaim drops the lease after a failed send
	ReleaseEmailClaim(ctx context.Context, reportID string) error
	// MarkEmailSent returns ErrReportNotFound for an unknown id
	MarkEmailSent(ctx context.Context, reportID string, at time.Time) error
}

// PositionRepository reads holdings
type PositionRepository interface {
	ListPositions(ctx context.Context, userID string) ([]Position, error)
}
