package contracts

import "time"

// Quote is the latest price of a symbol from one provider
type Quote struct {
	Symbol        string    `json:"symbol" yaml:"symbol"`
	Price         float64   `json:"price" yaml:"price"`
	Change        float64   `json:"change" yaml:"change"`
	ChangePercent float64   `json:"change_percent" yaml:"change_percent"`
	Volume        *int64    `json:"volume,omitempty" yaml:"volume,omitempty"`
	LastUpdated   time.Time `json:"last_updated" yaml:"last_updated"`
	Source        string    `json:"source" yaml:"source"` // provider name
}

// PreviousClose derives the prior close from price and change
func (q Quote) PreviousClose() float64 {
	return q.Price - q.Change
}

// HistoricalPoint is one daily bar
type HistoricalPoint struct {
	Date   time.Time `json:"date" yaml:"date"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume int64     `json:"volume" yaml:"volume"`
}

// Period is a history lookback window
type Period string

const (
	Period1W Period = "1w"
	Period1M Period = "1m"
	Period3M Period = "3m"
	Period6M Period = "6m"
	Period1Y Period = "1y"
	Period5Y Period = "5y"
)

var periodDays = map[Period]int{
	Period1W: 7,
	Period1M: 30,
	Period3M: 91,
	Period6M: 182,
	Period1Y: 365,
	Period5Y: 5 * 365,
}

// ParsePeriod validates a period string; empty means 1m
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return Period1M, nil
	}
	p := Period(s)
	if _, ok := periodDays[p]; !ok {
		return "", ErrInvalidPeriod
	}
	return p, nil
}

// Days returns the calendar-day length of the window
func (p Period) Days() int {
	return periodDays[p]
}

// Since returns the first date covered by the window ending at now
func (p Period) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.Days())
}
