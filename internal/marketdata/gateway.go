// Package marketdata fetches quotes and history from two interchangeable
// providers with failover, batching and an optional shared cache.
package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
	"github.com/wonny/folio/backend/pkg/retry"
)

// Config tunes batching and caching
type Config struct {
	BatchSize  int           // symbols fetched concurrently per sub-batch
	BatchDelay time.Duration // pause between sub-batches
	CacheTTL   time.Duration // quote cache lifetime; 0 disables
}

// Gateway implements contracts.MarketData on top of a primary and a secondary provider
// ⭐ SSOT: 시세 조회는 이 게이트웨이를 통해서만
type Gateway struct {
	primary   provider.Provider
	secondary provider.Provider
	cfg       Config
	cache     *redis.Cache
	logger    *logger.Logger
	sleep     retry.SleepFunc
}

// New creates a gateway. Non-positive batch sizes fall back to 5.
func New(primary, secondary provider.Provider, cfg Config, log *logger.Logger) *Gateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Gateway{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		cache:     redis.NewCache(redis.Disabled(), "folio"),
		logger:    log.WithComponent("gateway"),
		sleep:     retry.Sleep,
	}
}

// WithCache enables the shared quote cache
func (g *Gateway) WithCache(cache *redis.Cache) *Gateway {
	if cache != nil {
		g.cache = cache
	}
	return g
}

var _ contracts.MarketData = (*Gateway)(nil)

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns the latest quote, failing over on soft primary errors
func (g *Gateway) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	q, err := redis.GetOrSet(ctx, g.cache, redis.QuoteKey(symbol), g.cfg.CacheTTL, func() (contracts.Quote, error) {
		q, err := failover(ctx, g, "quote", symbol, func(p provider.Provider) (*contracts.Quote, error) {
			return p.Quote(ctx, symbol)
		})
		if err != nil {
			return contracts.Quote{}, err
		}
		return *q, nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuotes fetches many symbols in rate-limited sub-batches. Symbols that
// fail on both providers are logged and left out; the rest keep input order.
func (g *Gateway) GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error) {
	unique := dedupe(symbols)
	if len(unique) == 0 {
		return []contracts.Quote{}, nil
	}

	results := make([]*contracts.Quote, len(unique))

	for start := 0; start < len(unique); start += g.cfg.BatchSize {
		if start > 0 && g.cfg.BatchDelay > 0 {
			if err := g.sleep(ctx, g.cfg.BatchDelay); err != nil {
				return collect(results), fmt.Errorf("quote batch interrupted: %w", err)
			}
		}

		end := start + g.cfg.BatchSize
		if end > len(unique) {
			end = len(unique)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q, err := g.GetQuote(ctx, unique[i])
				if err != nil {
					droppedSymbolsCounter.Inc()
					g.logger.WithError(err).WithField("symbol", unique[i]).Warn("Dropping symbol from batch")
					return
				}
				results[i] = q
			}(i)
		}
		wg.Wait()
	}

	quotes := collect(results)
	if len(quotes) < len(unique) {
		g.logger.WithFields(map[string]interface{}{
			"requested": len(unique),
			"returned":  len(quotes),
		}).Info("Partial batch quote fetch")
	}
	return quotes, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = normalize(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func collect(results []*contracts.Quote) []contracts.Quote {
	out := make([]contracts.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}

// ValidateSymbol reports whether a provider search returns an exact
// case-insensitive match. Any primary failure falls through to the
// secondary; if both fail the answer is false.
func (g *Gateway) ValidateSymbol(ctx context.Context, symbol string) bool {
	symbol = normalize(symbol)
	if symbol == "" {
		return false
	}

	var cached bool
	if found, _ := g.cache.Get(ctx, redis.SymbolKey(symbol), &cached); found {
		return cached
	}

	for _, p := range []provider.Provider{g.primary, g.secondary} {
		start := time.Now()
		matches, err := p.Search(ctx, symbol)
		observe(p.Name(), "search", start, err)
		if err != nil {
			g.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol":   symbol,
				"provider": p.Name(),
			}).Warn("Symbol search failed")
			continue
		}

		valid := false
		for _, m := range matches {
			if strings.EqualFold(m.Symbol, symbol) {
				valid = true
				break
			}
		}
		_ = g.cache.Set(ctx, redis.SymbolKey(symbol), valid, redis.TTLSymbol)
		return valid
	}

	return false
}

// GetHistory returns daily bars for the period, oldest first
func (g *Gateway) GetHistory(ctx context.Context, symbol string, period contracts.Period) ([]contracts.HistoricalPoint, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if period.Days() == 0 {
		return nil, contracts.ErrInvalidPeriod
	}

	return redis.GetOrSet(ctx, g.cache, redis.HistoryKey(symbol, string(period)), redis.TTLHistory,
		func() ([]contracts.HistoricalPoint, error) {
			return failover(ctx, g, "history", symbol, func(p provider.Provider) ([]contracts.HistoricalPoint, error) {
				return p.History(ctx, symbol, period)
			})
		})
}

// failover runs call on the primary and, unless the primary failed hard,
// on the secondary
func failover[T any](ctx context.Context, g *Gateway, op, symbol string, call func(provider.Provider) (T, error)) (T, error) {
	var zero T

	start := time.Now()
	v, primaryErr := call(g.primary)
	observe(g.primary.Name(), op, start, primaryErr)
	if primaryErr == nil {
		return v, nil
	}

	log := g.logger.WithError(primaryErr).WithFields(map[string]interface{}{
		"operation": op,
		"symbol":    symbol,
		"provider":  g.primary.Name(),
	})

	if provider.IsHard(primaryErr) {
		log.Warn("Primary provider failed hard, not failing over")
		return zero, primaryErr
	}
	if ctx.Err() != nil {
		return zero, primaryErr
	}

	log.Info("Primary provider failed, failing over")
	failoverCounter.WithLabelValues(op).Inc()

	start = time.Now()
	v, secondaryErr := call(g.secondary)
	observe(g.secondary.Name(), op, start, secondaryErr)
	if secondaryErr == nil {
		return v, nil
	}

	return zero, &BothProvidersFailedError{
		Operation: op,
		Symbol:    symbol,
		Primary:   primaryErr,
		Secondary: secondaryErr,
	}
}

func observe(name, op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case provider.IsHard(err):
		outcome = "hard"
	default:
		outcome = "soft"
	}
	providerCallsCounter.WithLabelValues(name, op, outcome).Inc()
	providerDurationHist.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
}
