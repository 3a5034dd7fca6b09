package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// SetStopLoss creates an active stop-loss order for the user.
func (e *Engine) SetStopLoss(ctx context.Context, user, asset common.Address, stopPrice, triggerPrice decimal.Decimal) (domain.StopLossOrder, error) {
	if user == (common.Address{}) || asset == (common.Address{}) {
		return domain.StopLossOrder{}, domain.ErrInvalidInput
	}
	if !stopPrice.IsPositive() || !triggerPrice.IsPositive() {
		return domain.StopLossOrder{}, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	o := domain.StopLossOrder{
		ID:           uuid.New().String(),
		User:         user,
		Asset:        asset,
		StopPrice:    stopPrice,
		TriggerPrice: triggerPrice,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.stops.Create(ctx, o); err != nil {
		return domain.StopLossOrder{}, fmt.Errorf("risk: create stop-loss: %w", err)
	}

	e.rec.Emit(ctx, domain.EventStopLossSet, map[string]any{
		"id":         o.ID,
		"user":       user.Hex(),
		"asset":      asset.Hex(),
		"stop_price": stopPrice.String(),
	})
	return o, nil
}

// UpdateStopLoss replaces the prices of an active order. Only the owning user
// may update it.
func (e *Engine) UpdateStopLoss(ctx context.Context, caller common.Address, id string, stopPrice, triggerPrice decimal.Decimal) (domain.StopLossOrder, error) {
	if !stopPrice.IsPositive() || !triggerPrice.IsPositive() {
		return domain.StopLossOrder{}, domain.ErrInvalidInput
	}

	o, err := e.stops.Get(ctx, id)
	if err != nil {
		return domain.StopLossOrder{}, fmt.Errorf("risk: update stop-loss %s: %w", id, err)
	}
	if o.User != caller {
		return domain.StopLossOrder{}, domain.ErrUnauthorized
	}
	if !o.Active {
		return domain.StopLossOrder{}, domain.ErrOrderInactive
	}

	o.StopPrice = stopPrice
	o.TriggerPrice = triggerPrice
	o.UpdatedAt = time.Now().UTC()
	if err := e.stops.Update(ctx, o); err != nil {
		return domain.StopLossOrder{}, fmt.Errorf("risk: update stop-loss %s: %w", id, err)
	}

	e.rec.Emit(ctx, domain.EventStopLossUpdated, map[string]any{
		"id":         o.ID,
		"user":       caller.Hex(),
		"stop_price": stopPrice.String(),
	})
	return o, nil
}

// CancelStopLoss deactivates an order. Only the owning user may cancel it.
func (e *Engine) CancelStopLoss(ctx context.Context, caller common.Address, id string) error {
	o, err := e.stops.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("risk: cancel stop-loss %s: %w", id, err)
	}
	if o.User != caller {
		return domain.ErrUnauthorized
	}
	if !o.Active {
		return domain.ErrOrderInactive
	}

	o.Active = false
	o.UpdatedAt = time.Now().UTC()
	if err := e.stops.Update(ctx, o); err != nil {
		return fmt.Errorf("risk: cancel stop-loss %s: %w", id, err)
	}

	e.rec.Emit(ctx, domain.EventStopLossCancelled, map[string]any{
		"id":   o.ID,
		"user": caller.Hex(),
	})
	return nil
}

// StopLossOrders returns all orders owned by the user.
func (e *Engine) StopLossOrders(ctx context.Context, user common.Address) ([]domain.StopLossOrder, error) {
	return e.stops.ListByUser(ctx, user)
}
