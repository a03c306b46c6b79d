package contracts

// EligibleUser is a user snapshot with notification preferences.
// Read once per run; staleness within a run is acceptable.
// ⭐ SSOT: 일일 업데이트 대상 사용자
type EligibleUser struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	EmailEnabled       bool    `json:"email_enabled"`
	DailyUpdateEnabled bool    `json:"daily_update_enabled"`
	WeekendsEnabled    bool    `json:"weekends_enabled"`
	AlertThreshold     float64 `json:"alert_threshold"` // percent, e.g. 5 = 5%
}

// Position is one holding of a user
type Position struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
	Sector   string  `json:"sector,omitempty"`
}
