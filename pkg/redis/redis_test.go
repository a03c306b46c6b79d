package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/folio/backend/pkg/config"
)

func TestNewClientDisabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestNilClientIsDisabled(t *testing.T) {
	var client *Client
	assert.False(t, client.Enabled())
}

func TestRateLimiterDisabledAllowsAll(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := AlphaVantageRateLimit(75)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 75, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), YahooRateLimit))
}

func TestAlphaVantageRateLimitDefaultsToFreeTier(t *testing.T) {
	cfg := AlphaVantageRateLimit(0)
	assert.Equal(t, 5, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestRateLimiterRejectsNonPositiveLimit(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	_, _, err := limiter.Allow(context.Background(), RateLimitConfig{Key: "alphavantage", Limit: 0, Window: time.Minute})
	assert.ErrorIs(t, err, ErrInvalidRateLimit)

	// Wait must fail fast instead of polling forever
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = limiter.Wait(ctx, RateLimitConfig{Key: "alphavantage", Limit: 0, Window: time.Minute})
	assert.ErrorIs(t, err, ErrInvalidRateLimit)
}

func TestWindowMemberUniqueWithinMillisecond(t *testing.T) {
	now := time.Now().UnixMilli()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		m := windowMember(now)
		assert.False(t, seen[m], "duplicate member %s", m)
		seen[m] = true
	}
}

func TestCacheDisabledIsNoop(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var dest string
	found, err := cache.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestGetOrSetCallsLoaderOnMiss(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	calls := 0

	got, err := GetOrSet(context.Background(), cache, QuoteKey("aapl"), TTLQuote, func() (float64, error) {
		calls++
		return 187.5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 187.5, got)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetPropagatesLoaderError(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	boom := errors.New("upstream down")

	_, err := GetOrSet(context.Background(), cache, "k", TTLQuote, func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "quote:AAPL", QuoteKey("aapl"))
	assert.Equal(t, "symbol:valid:MSFT", SymbolKey("msft"))
	assert.Equal(t, "history:TSLA:1m", HistoryKey("tsla", "1m"))
}

func TestDisabledClientPing(t *testing.T) {
	assert.NoError(t, Disabled().Ping(context.Background()))
}
