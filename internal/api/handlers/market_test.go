package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/contracts/mocks"
	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/pkg/logger"
)

func marketRouter(market contracts.MarketData) *mux.Router {
	h := NewMarketHandler(market, logger.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/api/market/quote/{symbol}", h.GetQuote).Methods("GET")
	r.HandleFunc("/api/market/quotes", h.GetQuotes).Methods("GET")
	r.HandleFunc("/api/market/validate/{symbol}", h.ValidateSymbol).Methods("GET")
	r.HandleFunc("/api/market/history/{symbol}", h.GetHistory).Methods("GET")
	return r
}

func TestGetQuote(t *testing.T) {
	market := new(mocks.MarketData)
	market.On("GetQuote", mock.Anything, "AAPL").Return(&contracts.Quote{
		Symbol:        "AAPL",
		Price:         172.5,
		Change:        1.5,
		ChangePercent: 0.88,
		LastUpdated:   time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC),
		Source:        "alphavantage",
	}, nil)

	rec := serve(marketRouter(market), "GET", "/api/market/quote/AAPL", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, 172.5, body["price"])
	assert.Equal(t, "alphavantage", body["source"])
}

func TestGetQuoteErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", fmt.Errorf("alphavantage: %w", provider.ErrRateLimited), http.StatusTooManyRequests},
		{"both providers without data", &marketdata.BothProvidersFailedError{
			Operation: "quote", Symbol: "ZZZZ",
			Primary: provider.ErrNoData, Secondary: provider.ErrNoData,
		}, http.StatusNotFound},
		{"providers unavailable", &marketdata.BothProvidersFailedError{
			Operation: "quote", Symbol: "ZZZZ",
			Primary: errors.New("status 503"), Secondary: errors.New("dial tcp: timeout"),
		}, http.StatusBadGateway},
		{"empty symbol", marketdata.ErrEmptySymbol, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := new(mocks.MarketData)
			market.On("GetQuote", mock.Anything, "ZZZZ").Return(nil, tt.err)

			rec := serve(marketRouter(market), "GET", "/api/market/quote/ZZZZ", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetQuotes(t *testing.T) {
	t.Run("returns the quotes that resolved", func(t *testing.T) {
		market := new(mocks.MarketData)
		market.On("GetQuotes", mock.Anything, []string{"AAPL", "MSFT", "NOPE"}).
			Return([]contracts.Quote{{Symbol: "AAPL"}, {Symbol: "MSFT"}}, nil)

		rec := serve(marketRouter(market), "GET", "/api/market/quotes?symbols=AAPL,%20MSFT,,NOPE", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(3), body["requested"])
		assert.Equal(t, float64(2), body["returned"])
	})

	t.Run("nothing resolved is an empty list", func(t *testing.T) {
		market := new(mocks.MarketData)
		market.On("GetQuotes", mock.Anything, []string{"NOPE"}).Return(nil, nil)

		rec := serve(marketRouter(market), "GET", "/api/market/quotes?symbols=NOPE", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []interface{}{}, decodeBody(t, rec)["quotes"])
	})

	t.Run("missing symbols", func(t *testing.T) {
		rec := serve(marketRouter(new(mocks.MarketData)), "GET", "/api/market/quotes?symbols=,", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many symbols", func(t *testing.T) {
		q := "S0"
		for i := 1; i <= maxBatchSymbols; i++ {
			q += fmt.Sprintf(",S%d", i)
		}
		rec := serve(marketRouter(new(mocks.MarketData)), "GET", "/api/market/quotes?symbols="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidateSymbol(t *testing.T) {
	market := new(mocks.MarketData)
	market.On("ValidateSymbol", mock.Anything, "AAPL").Return(true)
	market.On("ValidateSymbol", mock.Anything, "ZZZZ").Return(false)

	r := marketRouter(market)

	rec := serve(r, "GET", "/api/market/validate/aapl", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["valid"])

	rec = serve(r, "GET", "/api/market/validate/ZZZZ", "")
	assert.Equal(t, false, decodeBody(t, rec)["valid"])
}

func TestGetHistory(t *testing.T) {
	t.Run("returns points", func(t *testing.T) {
		market := new(mocks.MarketData)
		market.On("GetHistory", mock.Anything, "msft", contracts.Period("3m")).Return([]contracts.HistoricalPoint{
			{Date: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Close: 410},
			{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Close: 415},
		}, nil)

		rec := serve(marketRouter(market), "GET", "/api/market/history/msft?period=3m", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "MSFT", body["symbol"])
		assert.Equal(t, "3m", body["period"])
		assert.Len(t, body["points"], 2)
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		market := new(mocks.MarketData)

		rec := serve(marketRouter(market), "GET", "/api/market/history/MSFT?period=2d", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		market.AssertNotCalled(t, "GetHistory", mock.Anything, mock.Anything, mock.Anything)
	})
}
