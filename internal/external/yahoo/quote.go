package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
)

// Quote reads the latest price from the v8 chart meta block
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.baseURL, url.PathEscape(symbol))

	doc, err := c.fetch(ctx, "quote", endpoint)
	if err != nil {
		return nil, err
	}
	if err := chartError(doc); err != nil {
		return nil, provider.Hard(Name, "quote", err)
	}

	price, err := getFloat(doc, "$.chart.result[0].meta.regularMarketPrice")
	if err != nil {
		return nil, provider.Soft(Name, "quote", fmt.Errorf("%w: %v", provider.ErrNoData, err))
	}

	prev, err := getFloat(doc, "$.chart.result[0].meta.chartPreviousClose")
	if err != nil {
		prev, err = getFloat(doc, "$.chart.result[0].meta.previousClose")
	}
	if err != nil || prev == 0 {
		prev = price
	}

	change := price - prev
	q := &contracts.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         price,
		Change:        change,
		ChangePercent: change / prev * 100,
		LastUpdated:   time.Now().UTC(),
		Source:        Name,
	}

	if vol, err := getFloat(doc, "$.chart.result[0].meta.regularMarketVolume"); err == nil {
		v := int64(vol)
		q.Volume = &v
	}
	if ts, err := getFloat(doc, "$.chart.result[0].meta.regularMarketTime"); err == nil {
		q.LastUpdated = time.Unix(int64(ts), 0).UTC()
	}

	return q, nil
}
