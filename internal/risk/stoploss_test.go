package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
)

func TestSetStopLoss(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	o, err := env.engine.SetStopLoss(ctx, alice, usdc, decimal.NewFromInt(90), decimal.NewFromInt(95))
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	require.True(t, o.Active)
	require.Nil(t, o.TriggeredAt)

	_, err = env.engine.SetStopLoss(ctx, alice, usdc, decimal.Zero, decimal.NewFromInt(95))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.engine.SetStopLoss(ctx, alice, usdc, decimal.NewFromInt(-1), decimal.NewFromInt(95))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	orders, err := env.engine.StopLossOrders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestStopLossOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)
	other := assessor

	o, err := env.engine.SetStopLoss(ctx, alice, usdc, decimal.NewFromInt(90), decimal.NewFromInt(95))
	require.NoError(t, err)

	_, err = env.engine.UpdateStopLoss(ctx, other, o.ID, decimal.NewFromInt(80), decimal.NewFromInt(85))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorIs(t, env.engine.CancelStopLoss(ctx, other, o.ID), domain.ErrUnauthorized)

	updated, err := env.engine.UpdateStopLoss(ctx, alice, o.ID, decimal.NewFromInt(80), decimal.NewFromInt(85))
	require.NoError(t, err)
	require.True(t, updated.StopPrice.Equal(decimal.NewFromInt(80)))

	require.NoError(t, env.engine.CancelStopLoss(ctx, alice, o.ID))

	// Terminal: further mutations are rejected.
	_, err = env.engine.UpdateStopLoss(ctx, alice, o.ID, decimal.NewFromInt(70), decimal.NewFromInt(75))
	require.ErrorIs(t, err, domain.ErrOrderInactive)
	require.ErrorIs(t, env.engine.CancelStopLoss(ctx, alice, o.ID), domain.ErrOrderInactive)

	require.ErrorIs(t, env.engine.CancelStopLoss(ctx, alice, "missing"), domain.ErrNotFound)
}

func TestCheckStopLossTriggers(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	below, err := env.engine.SetStopLoss(ctx, alice, usdc, decimal.NewFromInt(100), decimal.NewFromInt(105))
	require.NoError(t, err)
	above, err := env.engine.SetStopLoss(ctx, alice, weth, decimal.NewFromInt(1500), decimal.NewFromInt(1600))
	require.NoError(t, err)

	env.prices.prices[usdc] = decimal.NewFromInt(95)   // at or below stop
	env.prices.prices[weth] = decimal.NewFromInt(1800) // above stop

	triggered, err := env.engine.CheckStopLossTriggers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, triggered)

	orders, err := env.engine.StopLossOrders(ctx, alice)
	require.NoError(t, err)
	byID := make(map[string]domain.StopLossOrder, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	require.False(t, byID[below.ID].Active)
	require.NotNil(t, byID[below.ID].TriggeredAt)
	require.True(t, byID[above.ID].Active)
	require.Nil(t, byID[above.ID].TriggeredAt)

	// A second scan finds nothing left to trigger.
	triggered, err = env.engine.CheckStopLossTriggers(ctx)
	require.NoError(t, err)
	require.Zero(t, triggered)
}

func TestCheckStopLossTriggersSkipsUnpriced(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	o, err := env.engine.SetStopLoss(ctx, alice, usdc, decimal.NewFromInt(100), decimal.NewFromInt(105))
	require.NoError(t, err)

	// No price available: the order is left untouched.
	triggered, err := env.engine.CheckStopLossTriggers(ctx)
	require.NoError(t, err)
	require.Zero(t, triggered)

	orders, err := env.engine.StopLossOrders(ctx, alice)
	require.NoError(t, err)
	require.True(t, orders[0].Active)
	require.Equal(t, o.ID, orders[0].ID)

	// Exactly at the stop price counts as crossed.
	env.prices.prices[usdc] = decimal.NewFromInt(100)
	triggered, err = env.engine.CheckStopLossTriggers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, triggered)
}
