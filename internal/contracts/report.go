package contracts

import "time"

// Mover is a position whose daily move crossed the user's alert threshold
type Mover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Value         float64 `json:"value"`
}

// SectorPerformance aggregates positions of one sector
type SectorPerformance struct {
	Sector        string  `json:"sector"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Weight        float64 `json:"weight"` // share of portfolio value, 0..1
}

// DailyReport is the generated content of one user's daily update
// ⭐ SSOT: 일일 리포트 본문
type DailyReport struct {
	UserID            string              `json:"user_id"`
	ReportDate        time.Time           `json:"report_date"` // calendar date, UTC midnight
	PortfolioValue    float64             `json:"portfolio_value"`
	Change            float64             `json:"change"`
	ChangePercent     float64             `json:"change_percent"`
	SignificantMovers []Mover             `json:"significant_movers"`
	SectorPerformance []SectorPerformance `json:"sector_performance"`
	Summary           string              `json:"summary"`
}

// DailyReportRecord is a persisted DailyReport.
// At most one record exists per (UserID, ReportDate).
type DailyReportRecord struct {
	DailyReport
	ID          string     `json:"id"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ReportDate truncates t to its calendar date in loc and returns that date
// as UTC midnight, the form stored in daily_reports.report_date.
func ReportDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
