package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/external/provider"
	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/pkg/logger"
)

// maxBatchSymbols caps /quotes requests
const maxBatchSymbols = 50

// MarketHandler exposes the quote gateway
type MarketHandler struct {
	market contracts.MarketData
	logger *logger.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(market contracts.MarketData, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: log,
	}
}

// GetQuote returns the latest quote
// GET /api/market/quote/{symbol}
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	quote, err := h.market.GetQuote(r.Context(), symbol)
	if err != nil {
		h.respondMarketError(w, err, symbol)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// GetQuotes returns quotes for a comma separated list; failed symbols are left out
// GET /api/market/quotes?symbols=AAPL,MSFT
func (h *MarketHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	if len(symbols) > maxBatchSymbols {
		respondError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	quotes, err := h.market.GetQuotes(r.Context(), symbols)
	if err != nil {
		h.logger.WithError(err).Warn("Batch quote fetch interrupted")
	}
	if quotes == nil {
		quotes = []contracts.Quote{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"quotes":    quotes,
		"requested": len(symbols),
		"returned":  len(quotes),
	})
}

// ValidateSymbol reports whether a symbol exists
// GET /api/market/validate/{symbol}
func (h *MarketHandler) ValidateSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"valid":  h.market.ValidateSymbol(r.Context(), symbol),
	})
}

// GetHistory returns daily bars for a period (1w, 1m, 3m, 6m, 1y, 5y)
// GET /api/market/history/{symbol}?period=1m
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	period, err := contracts.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.market.GetHistory(r.Context(), symbol, period)
	if err != nil {
		h.respondMarketError(w, err, symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": strings.ToUpper(symbol),
		"period": period,
		"points": points,
	})
}

func (h *MarketHandler) respondMarketError(w http.ResponseWriter, err error, symbol string) {
	switch {
	case errors.Is(err, marketdata.ErrEmptySymbol), errors.Is(err, contracts.ErrInvalidPeriod):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "Market data provider rate limit reached")
	case errors.Is(err, provider.ErrNoData):
		respondError(w, http.StatusNotFound, "No market data for "+strings.ToUpper(symbol))
	default:
		h.logger.WithError(err).WithField("symbol", symbol).Error("Market data request failed")
		respondError(w, http.StatusBadGateway, "Market data providers unavailable")
	}
}
