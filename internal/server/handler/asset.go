package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AssetService defines the registry operations the asset handler requires.
type AssetService interface {
	AddAsset(ctx context.Context, caller, asset common.Address, symbol string, decimals uint8) (domain.Asset, error)
	SetAssetActive(ctx context.Context, caller, asset common.Address, active bool) error
	Asset(ctx context.Context, addr common.Address) (domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
}

// AssetHandler serves the asset registry endpoints.
type AssetHandler struct {
	assets AssetService
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler with the given service.
func NewAssetHandler(assets AssetService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{assets: assets, logger: logger}
}

type assetView struct {
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Decimals  uint8     `json:"decimals"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toAssetView(a domain.Asset) assetView {
	return assetView{
		Address:   a.Address.Hex(),
		Symbol:    a.Symbol,
		Decimals:  a.Decimals,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// ListAssets returns all registered assets.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListAssets(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, toAssetView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": views})
}

// GetAsset returns a single asset by address.
// GET /api/assets/{address}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	a, err := h.assets.Asset(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetView(a))
}

// AddAsset registers a new custodied asset. Admin only.
// POST /api/assets
func (h *AssetHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	var req struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	a, err := h.assets.AddAsset(r.Context(), caller, addr, req.Symbol, req.Decimals)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetView(a))
}

// SetAssetActive activates or deactivates an asset. Admin only.
// PATCH /api/assets/{address}
func (h *AssetHandler) SetAssetActive(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.assets.SetAssetActive(r.Context(), caller, addr, req.Active); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"active":  req.Active,
	})
}
