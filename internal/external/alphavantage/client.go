// Package alphavantage is the primary quote provider.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Name identifies this provider in quotes, logs and metrics
const Name = "alphavantage"

// ErrNoAPIKey is returned by every call when no key is configured
var ErrNoAPIKey = errors.New("api key not configured")

// Client handles communication with the Alpha Vantage query API
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Alpha Vantage client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent(Name),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Name implements provider.Provider
func (c *Client) Name() string { return Name }

// query calls one API function and returns the decoded top-level object.
// Alpha Vantage reports failures with HTTP 200 and one of three keys.
func (c *Client) query(ctx context.Context, op string, params url.Values) (map[string]json.RawMessage, error) {
	if c.apiKey == "" {
		// a keyless deployment still serves quotes from the secondary
		return nil, provider.Soft(Name, op, ErrNoAPIKey)
	}
	params.Set("apikey", c.apiKey)

	var payload map[string]json.RawMessage
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/query?"+params.Encode(), &payload); err != nil {
		return nil, provider.FromHTTP(Name, op, err)
	}

	if msg, ok := stringField(payload, "Error Message"); ok {
		return nil, provider.Hard(Name, op, errors.New(msg))
	}
	// "Note" is the classic throttling notice; "Information" is used for
	// daily caps and premium-only endpoints
	for _, key := range []string{"Note", "Information"} {
		if msg, ok := stringField(payload, key); ok {
			return nil, provider.Hard(Name, op, fmt.Errorf("%w: %s", provider.ErrRateLimited, msg))
		}
	}

	return payload, nil
}

func stringField(payload map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true
	}
	return s, true
}
