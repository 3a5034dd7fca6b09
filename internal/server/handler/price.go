package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceService defines the feed operations the price handler requires.
type PriceService interface {
	Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error)
	SetOverride(ctx context.Context, caller, asset common.Address, price decimal.Decimal) error
	ClearOverride(ctx context.Context, caller, asset common.Address) error
}

// PriceHandler serves price lookup and override endpoints.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler with the given service.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// GetPrice returns the current valid price for an asset.
// GET /api/prices/{address}
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	price, at, err := h.prices.Price(r.Context(), asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":       asset.Hex(),
		"price":       price.String(),
		"observed_at": at.UTC().Format(time.RFC3339),
	})
}

// SetOverride pins an asset's price, bypassing the feed. Admin only.
// PUT /api/prices/{address}/override
func (h *PriceHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	asset, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	var req struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	if err := h.prices.SetOverride(r.Context(), caller, asset, price); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "override set",
		"asset":  asset.Hex(),
		"price":  price.String(),
	})
}

// ClearOverride removes an asset's pinned price. Admin only.
// DELETE /api/prices/{address}/override
func (h *PriceHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	asset, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	if err := h.prices.ClearOverride(r.Context(), caller, asset); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "override cleared",
		"asset":  asset.Hex(),
	})
}
