package contracts

import (
	"context"
	"time"
)

// ReportGenerator builds and persists a user's report for the given
// report date (midnight UTC of the calendar day, see ReportDate)
// ⭐ SSOT: 리포트 생성 인터페이스
type ReportGenerator interface {
	GenerateDailyReport(ctx context.Context, userID string, date time.Time) (*DailyReportRecord, error)
}

// DeliveryChannel renders and sends a report, retrying transient failures
// itself, and marks the record sent on success
// ⭐ SSOT: 발송 채널 인터페이스
type DeliveryChannel interface {
	Send(ctx context.Context, user *EligibleUser, record *DailyReportRecord) error
}

// MarketData is the quote gateway contract
// ⭐ SSOT: 시세 게이트웨이 인터페이스
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	// GetQuotes returns only the symbols that succeeded, in input order
	GetQuotes(ctx context.Context, symbols []string) ([]Quote, error)
	// ValidateSymbol never fails; provider errors yield false
	ValidateSymbol(ctx context.Context, symbol string) bool
	GetHistory(ctx context.Context, symbol string, period Period) ([]HistoricalPoint, error)
}
