package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
)

// History reads daily bars from the v8 chart endpoint, oldest first
func (c *Client) History(ctx context.Context, symbol string, period contracts.Period) ([]contracts.HistoricalPoint, error) {
	now := time.Now().UTC()
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(period.Since(now).Unix(), 10))
	params.Set("period2", strconv.FormatInt(now.Unix(), 10))
	params.Set("interval", "1d")

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	doc, err := c.fetch(ctx, "history", endpoint)
	if err != nil {
		return nil, err
	}
	if err := chartError(doc); err != nil {
		return nil, provider.Hard(Name, "history", err)
	}

	timestamps, err := getList(doc, "$.chart.result[0].timestamp")
	if err != nil {
		return nil, provider.Soft(Name, "history", fmt.Errorf("%w: %v", provider.ErrNoData, err))
	}

	cols := map[string][]any{}
	for _, col := range []string{"open", "high", "low", "close", "volume"} {
		list, err := getList(doc, "$.chart.result[0].indicators.quote[0]."+col)
		if err != nil || len(list) != len(timestamps) {
			return nil, provider.Soft(Name, "history", fmt.Errorf("column %s misaligned", col))
		}
		cols[col] = list
	}

	points := make([]contracts.HistoricalPoint, 0, len(timestamps))
	for i, ts := range timestamps {
		sec, ok := ts.(float64)
		if !ok {
			continue
		}
		closeVal, ok := cols["close"][i].(float64)
		if !ok {
			// null bars appear for halted sessions
			continue
		}
		open, _ := cols["open"][i].(float64)
		high, _ := cols["high"][i].(float64)
		low, _ := cols["low"][i].(float64)
		vol, _ := cols["volume"][i].(float64)

		points = append(points, contracts.HistoricalPoint{
			Date:   contracts.ReportDate(time.Unix(int64(sec), 0), time.UTC),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeVal,
			Volume: int64(vol),
		})
	}
	return points, nil
}
