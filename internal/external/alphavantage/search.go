package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/wonny/folio/backend/internal/external/provider"
)

type searchMatch struct {
	Symbol   string `json:"1. symbol"`
	Name     string `json:"2. name"`
	Type     string `json:"3. type"`
	Region   string `json:"4. region"`
	Currency string `json:"8. currency"`
}

// Search looks symbols up with SYMBOL_SEARCH
func (c *Client) Search(ctx context.Context, query string) ([]provider.Match, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", query)

	payload, err := c.query(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["bestMatches"]
	if !ok {
		return nil, provider.Soft(Name, "search", fmt.Errorf("missing bestMatches"))
	}

	var matches []searchMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, provider.Soft(Name, "search", fmt.Errorf("decode bestMatches: %w", err))
	}

	out := make([]provider.Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, provider.Match{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Type:     m.Type,
			Region:   m.Region,
			Currency: m.Currency,
		})
	}
	return out, nil
}
