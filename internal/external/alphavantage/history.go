package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
)

// compact output holds the latest 100 trading days
const compactCalendarDays = 140

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// History fetches daily bars with TIME_SERIES_DAILY, oldest first
func (c *Client) History(ctx context.Context, symbol string, period contracts.Period) ([]contracts.HistoricalPoint, error) {
	outputSize := "compact"
	if period.Days() > compactCalendarDays {
		outputSize = "full"
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize)

	payload, err := c.query(ctx, "history", params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["Time Series (Daily)"]
	if !ok {
		return nil, provider.Soft(Name, "history", fmt.Errorf("%w for %s", provider.ErrNoData, symbol))
	}

	var series map[string]dailyBar
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, provider.Soft(Name, "history", fmt.Errorf("decode time series: %w", err))
	}

	since := period.Since(time.Now().UTC())
	points := make([]contracts.HistoricalPoint, 0, len(series))
	for day, bar := range series {
		date, err := time.Parse("2006-01-02", day)
		if err != nil || date.Before(since) {
			continue
		}
		p, err := bar.toPoint(date)
		if err != nil {
			c.logger.WithError(err).WithField("date", day).Warn("Skipping malformed bar")
			continue
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (b dailyBar) toPoint(date time.Time) (contracts.HistoricalPoint, error) {
	var p contracts.HistoricalPoint
	p.Date = date

	fields := []struct {
		s   string
		dst *float64
	}{
		{b.Open, &p.Open}, {b.High, &p.High}, {b.Low, &p.Low}, {b.Close, &p.Close},
	}
	for _, f := range fields {
		v, err := parseFloat(f.s)
		if err != nil {
			return p, err
		}
		*f.dst = v
	}

	vol, err := strconv.ParseInt(b.Volume, 10, 64)
	if err != nil {
		return p, fmt.Errorf("volume: %w", err)
	}
	p.Volume = vol
	return p, nil
}
