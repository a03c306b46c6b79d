// Package yahoo is the secondary quote provider, backed by the public
// Yahoo Finance chart and search endpoints.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Name identifies this provider in quotes, logs and metrics
const Name = "yahoo"

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent(Name),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name implements provider.Provider
func (c *Client) Name() string { return Name }

// fetch decodes a JSON document into a generic tree for jsonpath lookups
func (c *Client) fetch(ctx context.Context, op, url string) (any, error) {
	var doc any
	if err := c.httpClient.GetJSON(ctx, url, &doc); err != nil {
		return nil, provider.FromHTTP(Name, op, err)
	}
	return doc, nil
}

// chartError returns the explicit error object of a chart response, if any
func chartError(doc any) error {
	v, err := jsonpath.Get("$.chart.error.description", doc)
	if err != nil {
		return nil
	}
	if s, ok := first(v).(string); ok && s != "" {
		return errors.New(s)
	}
	return nil
}

// first unwraps single-element results: jsonpath returns a list for
// wildcard and slice expressions and a scalar otherwise
func first(v any) any {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

func getFloat(doc any, path string) (float64, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	f, ok := first(v).(float64)
	if !ok {
		return 0, fmt.Errorf("%s: not a number: %v", path, v)
	}
	return f, nil
}

func getList(doc any, path string) ([]any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: not a list", path)
	}
	return list, nil
}
