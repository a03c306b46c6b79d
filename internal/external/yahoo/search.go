package yahoo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/folio/backend/internal/external/provider"
)

// Search looks symbols up with the v1 search endpoint
func (c *Client) Search(ctx context.Context, query string) ([]provider.Match, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")

	doc, err := c.fetch(ctx, "search", c.baseURL+"/v1/finance/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	quotes, err := getList(doc, "$.quotes")
	if err != nil {
		return nil, provider.Soft(Name, "search", fmt.Errorf("unexpected search payload: %w", err))
	}

	matches := make([]provider.Match, 0, len(quotes))
	for _, q := range quotes {
		m, ok := q.(map[string]any)
		if !ok {
			continue
		}
		symbol, _ := m["symbol"].(string)
		if symbol == "" {
			continue
		}
		name, _ := m["shortname"].(string)
		if name == "" {
			name, _ = m["longname"].(string)
		}
		kind, _ := m["quoteType"].(string)
		exchange, _ := m["exchange"].(string)

		matches = append(matches, provider.Match{Symbol: symbol, Name: name, Type: kind, Region: exchange})
	}
	return matches, nil
}
