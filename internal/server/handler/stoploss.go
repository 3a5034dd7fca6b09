package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// StopLossService defines the order operations the stop-loss handler requires.
type StopLossService interface {
	SetStopLoss(ctx context.Context, user, asset common.Address, stopPrice, triggerPrice decimal.Decimal) (domain.StopLossOrder, error)
	UpdateStopLoss(ctx context.Context, caller common.Address, id string, stopPrice, triggerPrice decimal.Decimal) (domain.StopLossOrder, error)
	CancelStopLoss(ctx context.Context, caller common.Address, id string) error
	StopLossOrders(ctx context.Context, user common.Address) ([]domain.StopLossOrder, error)
}

// StopLossHandler serves stop-loss order endpoints.
type StopLossHandler struct {
	orders StopLossService
	logger *slog.Logger
}

// NewStopLossHandler creates a StopLossHandler with the given service.
func NewStopLossHandler(orders StopLossService, logger *slog.Logger) *StopLossHandler {
	return &StopLossHandler{orders: orders, logger: logger}
}

type stopLossView struct {
	ID           string     `json:"id"`
	User         string     `json:"user"`
	Asset        string     `json:"asset"`
	StopPrice    string     `json:"stop_price"`
	TriggerPrice string     `json:"trigger_price"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	TriggeredAt  *time.Time `json:"triggered_at,omitempty"`
}

func toStopLossView(o domain.StopLossOrder) stopLossView {
	return stopLossView{
		ID:           o.ID,
		User:         o.User.Hex(),
		Asset:        o.Asset.Hex(),
		StopPrice:    o.StopPrice.String(),
		TriggerPrice: o.TriggerPrice.String(),
		Active:       o.Active,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		TriggeredAt:  o.TriggeredAt,
	}
}

type stopLossPrices struct {
	StopPrice    string `json:"stop_price"`
	TriggerPrice string `json:"trigger_price"`
}

func (req stopLossPrices) parse() (stop, trigger decimal.Decimal, err error) {
	if stop, err = decimal.NewFromString(req.StopPrice); err != nil {
		return
	}
	trigger, err = decimal.NewFromString(req.TriggerPrice)
	return
}

// Create places a new stop-loss order for the calling user.
// POST /api/stoploss
func (h *StopLossHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User  string `json:"user"`
		Asset string `json:"asset"`
		stopLossPrices
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}
	stop, trigger, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stop or trigger price")
		return
	}

	o, err := h.orders.SetStopLoss(r.Context(), user, asset, stop, trigger)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStopLossView(o))
}

// Update changes the prices of an existing order. Owner only.
// PUT /api/stoploss/{id}
func (h *StopLossHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req stopLossPrices
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	stop, trigger, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stop or trigger price")
		return
	}

	o, err := h.orders.UpdateStopLoss(r.Context(), caller, id, stop, trigger)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStopLossView(o))
}

// Cancel deactivates an order. Owner only.
// DELETE /api/stoploss/{id}
func (h *StopLossHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.orders.CancelStopLoss(r.Context(), caller, id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "id": id})
}

// List returns a user's stop-loss orders.
// GET /api/stoploss?user=0x...
func (h *StopLossHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid user query parameter required")
		return
	}

	orders, err := h.orders.StopLossOrders(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]stopLossView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toStopLossView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}
