package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
	"github.com/wonny/folio/backend/pkg/retry"
)

// maxBodyBytes bounds how much of an upstream response is buffered
const maxBodyBytes = 4 << 20

// Client is an HTTP client wrapper with per-attempt timeout, retry and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	timeout      time.Duration
	policy       retry.Policy
	retryEnabled bool
	sleep        retry.SleepFunc

	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// StatusError is returned for any non-2xx response after retries
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// New creates a new HTTP client from config. Every attempt is bounded by
// MarketData.RequestTimeout; retries start at MarketData.RetryDelay.
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.MarketData.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := cfg.MarketData.RetryDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{},
		logger:     log,
		timeout:    timeout,
		policy: retry.Policy{
			Attempts:  3,
			BaseDelay: base,
			MaxDelay:  10 * time.Second,
		},
		retryEnabled: true,
		sleep:        retry.Sleep,
	}
}

// WithTimeout overrides the per-attempt timeout
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithRetry configures retry behavior; attempts counts the first try
func (c *Client) WithRetry(attempts int, baseDelay time.Duration) *Client {
	c.policy.Attempts = attempts
	c.policy.BaseDelay = baseDelay
	c.retryEnabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryEnabled = false
	return c
}

// WithLimiter throttles this process's requests with a token bucket
func (c *Client) WithLimiter(limiter *rate.Limiter) *Client {
	c.limiter = limiter
	return c
}

// WithRateLimiter sets the shared Redis rate limiter for this client
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// GetJSON performs a GET request and decodes a 2xx JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	body, err := c.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// GetBytes performs a GET request and returns the 2xx body.
// Non-2xx responses are returned as *StatusError.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "folio/1.0")

	return c.do(req)
}

// do executes the request with rate limiting, retry and logging
func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	startTime := time.Now()
	url := redactURL(req.URL)

	// a throttled upstream must not stall the caller past one attempt's budget
	waitCtx, cancelWait := context.WithTimeout(ctx, c.timeout)
	err := c.wait(waitCtx)
	cancelWait()
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    url,
	}).Debug("HTTP request started")

	var body []byte
	attempt := func(n int) error {
		if n > 1 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": n,
				"url":     url,
			}).Warn("Retrying HTTP request")
		}
		b, err := c.once(req)
		body = b
		return err
	}

	policy := c.policy
	if !c.retryEnabled {
		policy.Attempts = 1
	}

	err = retry.DoWithSleep(ctx, policy, c.sleep, attempt, func(err error) bool {
		return ctx.Err() == nil && IsRetryable(err)
	})

	duration := time.Since(startTime)
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.Attempts == 1 {
			err = exhausted.Err
		}
		c.logger.WithFields(map[string]interface{}{
			"method":   req.Method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Debug("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":   req.Method,
		"url":      url,
		"duration": duration,
	}).Debug("HTTP request completed")

	return body, nil
}

// once performs a single bounded attempt and buffers the body
func (c *Client) once(req *http.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()

	resp, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: redactURL(req.URL), Body: snippet}
	}
	return body, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("local rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	return nil
}

// IsRetryable reports whether a request error is transient: a network
// failure, an attempt timeout, or a 5xx response. 4xx responses are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}
	return !errors.Is(err, context.Canceled)
}

// IsRetryableStatus checks if a status code should be retried
func IsRetryableStatus(statusCode int) bool {
	return statusCode >= 500
}

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
