package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
)

// globalQuote mirrors the GLOBAL_QUOTE payload; every value is a string
type globalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// Quote fetches the latest quote with GLOBAL_QUOTE
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	payload, err := c.query(ctx, "quote", params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["Global Quote"]
	if !ok {
		return nil, provider.Soft(Name, "quote", fmt.Errorf("missing Global Quote for %s", symbol))
	}

	var gq globalQuote
	if err := json.Unmarshal(raw, &gq); err != nil {
		return nil, provider.Soft(Name, "quote", fmt.Errorf("decode Global Quote: %w", err))
	}
	// unknown symbols come back as an empty object
	if gq.Symbol == "" || gq.Price == "" {
		return nil, provider.Soft(Name, "quote", fmt.Errorf("%w for %s", provider.ErrNoData, symbol))
	}

	quote, err := gq.toQuote()
	if err != nil {
		return nil, provider.Soft(Name, "quote", err)
	}
	return quote, nil
}

func (gq globalQuote) toQuote() (*contracts.Quote, error) {
	price, err := parseFloat(gq.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	change, err := parseFloat(gq.Change)
	if err != nil {
		return nil, fmt.Errorf("change: %w", err)
	}
	pct, err := parseFloat(strings.TrimSuffix(gq.ChangePercent, "%"))
	if err != nil {
		return nil, fmt.Errorf("change percent: %w", err)
	}

	q := &contracts.Quote{
		Symbol:        strings.ToUpper(gq.Symbol),
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		LastUpdated:   time.Now().UTC(),
		Source:        Name,
	}
	if v, err := strconv.ParseInt(gq.Volume, 10, 64); err == nil {
		q.Volume = &v
	}
	if day, err := time.Parse("2006-01-02", gq.LatestTradingDay); err == nil {
		q.LastUpdated = day
	}
	return q, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
