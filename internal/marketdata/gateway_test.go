package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/pkg/logger"
)

// fakeProvider serves quotes from a price table and fails per symbol
type fakeProvider struct {
	name    string
	prices  map[string]float64
	fail    map[string]error
	matches []provider.Match
	search  error

	mu    sync.Mutex
	calls map[string]int
}

func newFake(name string) *fakeProvider {
	return &fakeProvider{name: name, prices: map[string]float64{}, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) record(key string) {
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
}

func (f *fakeProvider) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeProvider) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeProvider) Quote(_ context.Context, symbol string) (*contracts.Quote, error) {
	f.record("quote:" + symbol)
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, provider.Soft(f.name, "quote", provider.ErrNoData)
	}
	return &contracts.Quote{Symbol: symbol, Price: price, Source: f.name}, nil
}

func (f *fakeProvider) Search(_ context.Context, query string) ([]provider.Match, error) {
	f.record("search:" + query)
	if f.search != nil {
		return nil, f.search
	}
	return f.matches, nil
}

func (f *fakeProvider) History(_ context.Context, symbol string, _ contracts.Period) ([]contracts.HistoricalPoint, error) {
	f.record("history:" + symbol)
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	return []contracts.HistoricalPoint{{Close: f.prices[symbol]}}, nil
}

func newGateway(a, b *fakeProvider, cfg Config) (*Gateway, *[]time.Duration) {
	g := New(a, b, cfg, logger.NewNop())
	var mu sync.Mutex
	sleeps := []time.Duration{}
	g.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return nil
	}
	return g, &sleeps
}

var errNetwork = errors.New("dial tcp: connection refused")

func TestGetQuoteFailsOverOnSoftError(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.fail["AAPL"] = provider.Soft("a", "quote", errNetwork)
	b.prices["AAPL"] = 187.5

	g, _ := newGateway(a, b, Config{})
	q, err := g.GetQuote(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "b", q.Source)
	assert.Equal(t, 187.5, q.Price)
}

func TestGetQuoteHardErrorSkipsSecondary(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.fail["AAPL"] = provider.Hard("a", "quote", provider.ErrRateLimited)
	b.prices["AAPL"] = 187.5

	g, _ := newGateway(a, b, Config{})
	_, err := g.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, provider.IsHard(err))
	assert.ErrorIs(t, err, provider.ErrRateLimited)
	assert.Zero(t, b.total())
}

func TestGetQuoteBothFail(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.fail["BAD"] = provider.Soft("a", "quote", errNetwork)
	b.fail["BAD"] = provider.Soft("b", "quote", provider.ErrNoData)

	g, _ := newGateway(a, b, Config{})
	_, err := g.GetQuote(context.Background(), "BAD")

	var both *BothProvidersFailedError
	require.ErrorAs(t, err, &both)
	assert.Equal(t, "quote", both.Operation)
	assert.Equal(t, "BAD", both.Symbol)
	assert.ErrorIs(t, err, errNetwork)
	assert.ErrorIs(t, err, provider.ErrNoData)
}

func TestGetQuoteEmptySymbol(t *testing.T) {
	g, _ := newGateway(newFake("a"), newFake("b"), Config{})
	_, err := g.GetQuote(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestGetQuotesPartialResults(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.prices["AAPL"] = 187.5
	a.prices["MSFT"] = 415.1
	a.fail["BAD"] = provider.Soft("a", "quote", errNetwork)
	b.fail["BAD"] = provider.Soft("b", "quote", errNetwork)

	g, _ := newGateway(a, b, Config{})
	quotes, err := g.GetQuotes(context.Background(), []string{"AAPL", "BAD", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "MSFT", quotes[1].Symbol)
}

func TestGetQuotesDedupes(t *testing.T) {
	a := newFake("a")
	a.prices["AAPL"] = 1
	a.prices["MSFT"] = 2

	g, _ := newGateway(a, newFake("b"), Config{})
	quotes, err := g.GetQuotes(context.Background(), []string{"aapl", " AAPL", "MSFT", "", "msft"})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, 1, a.count("quote:AAPL"))
	assert.Equal(t, 1, a.count("quote:MSFT"))
}

func TestGetQuotesSubBatchDelays(t *testing.T) {
	a := newFake("a")
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	for i, s := range symbols {
		a.prices[s] = float64(i)
	}

	g, sleeps := newGateway(a, newFake("b"), Config{BatchSize: 5, BatchDelay: 250 * time.Millisecond})
	quotes, err := g.GetQuotes(context.Background(), symbols)
	require.NoError(t, err)
	require.Len(t, quotes, 12)
	for i, q := range quotes {
		assert.Equal(t, symbols[i], q.Symbol)
	}
	// three sub-batches, delay only between them
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, *sleeps)
}

func TestGetQuotesEmpty(t *testing.T) {
	g, _ := newGateway(newFake("a"), newFake("b"), Config{})
	quotes, err := g.GetQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		name          string
		primary       func(*fakeProvider)
		secondary     func(*fakeProvider)
		symbol        string
		want          bool
		wantSecondary int
	}{
		{
			name:    "exact match on primary",
			primary: func(p *fakeProvider) { p.matches = []provider.Match{{Symbol: "AAPL"}} },
			symbol:  "aapl",
			want:    true,
		},
		{
			name:    "primary answers no match",
			primary: func(p *fakeProvider) { p.matches = []provider.Match{{Symbol: "AAPL.MX"}} },
			symbol:  "AAPL",
			want:    false,
		},
		{
			name:          "primary hard failure falls back",
			primary:       func(p *fakeProvider) { p.search = provider.Hard("a", "search", provider.ErrRateLimited) },
			secondary:     func(p *fakeProvider) { p.matches = []provider.Match{{Symbol: "MSFT"}} },
			symbol:        "msft",
			want:          true,
			wantSecondary: 1,
		},
		{
			name:          "both fail",
			primary:       func(p *fakeProvider) { p.search = errNetwork },
			secondary:     func(p *fakeProvider) { p.search = errNetwork },
			symbol:        "MSFT",
			want:          false,
			wantSecondary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := newFake("a"), newFake("b")
			if tt.primary != nil {
				tt.primary(a)
			}
			if tt.secondary != nil {
				tt.secondary(b)
			}
			g, _ := newGateway(a, b, Config{})
			assert.Equal(t, tt.want, g.ValidateSymbol(context.Background(), tt.symbol))
			assert.Equal(t, tt.wantSecondary, b.total())
		})
	}
}

func TestValidateSymbolBlank(t *testing.T) {
	a := newFake("a")
	g, _ := newGateway(a, newFake("b"), Config{})
	assert.False(t, g.ValidateSymbol(context.Background(), ""))
	assert.Zero(t, a.total())
}

func TestGetHistory(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.fail["AAPL"] = provider.Soft("a", "history", errNetwork)
	b.prices["AAPL"] = 10

	g, _ := newGateway(a, b, Config{})
	points, err := g.GetHistory(context.Background(), "AAPL", contracts.Period1M)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 10.0, points[0].Close)

	_, err = g.GetHistory(context.Background(), "AAPL", contracts.Period("9d"))
	assert.ErrorIs(t, err, contracts.ErrInvalidPeriod)
}
