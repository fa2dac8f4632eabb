package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/expense-ingest/internal/api/middleware"
	"github.com/dvloznov/expense-ingest/internal/config"
	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

// MarketDataHandler serves persisted market data.
type MarketDataHandler struct {
	store MarketDataReader
}

// NewMarketDataHandler creates a new market data handler.
func NewMarketDataHandler(store MarketDataReader) *MarketDataHandler {
	return &MarketDataHandler{store: store}
}

// ListSymbols handles GET /api/market-data/symbols
func (h *MarketDataHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	symbols, err := h.store.AvailableSymbols(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to fetch available symbols")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeInternal, "Failed to fetch available symbols")
		return
	}
	if symbols == nil {
		symbols = []domain.SymbolSummary{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    symbols,
	})
}

// GetSymbol handles GET /api/market-data/{symbol}?limit=N
func (h *MarketDataHandler) GetSymbol(w http.ResponseWriter, r *http.Request, symbol string) {
	ctx := r.Context()

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = config.DefaultLatestDataLimit
	}

	data, err := h.store.LatestMarketData(ctx, symbol, limit)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch market data")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeInternal, "Failed to fetch market data")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, fmt.Sprintf("No data found for symbol: %s", symbol))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"symbol":  strings.ToUpper(symbol),
		"data":    data,
	})
}
