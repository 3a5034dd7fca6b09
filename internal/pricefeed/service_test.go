package pricefeed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
	"github.com/MeganTobias/chainvault/internal/store/memory"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type observation struct {
	price decimal.Decimal
	at    time.Time
}

type fakeSource struct {
	obs map[common.Address]observation
}

func (f *fakeSource) Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error) {
	o, ok := f.obs[asset]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}
	return o.price, o.at, nil
}

func (f *fakeSource) SetPrice(ctx context.Context, asset common.Address, price decimal.Decimal, ts time.Time) error {
	f.obs[asset] = observation{price: price, at: ts}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeSource, time.Time) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acl := domain.NewAccessList()
	acl.Grant(domain.RoleAdmin, admin)
	rec := events.NewRecorder(memory.NewAuditStore(), logger)

	src := &fakeSource{obs: make(map[common.Address]observation)}
	svc := NewService(src, time.Hour, acl, rec, logger)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, src, now
}

func TestPriceFresh(t *testing.T) {
	ctx := context.Background()
	svc, src, now := newTestService(t)

	src.obs[usdc] = observation{price: decimal.NewFromInt(1), at: now.Add(-10 * time.Minute)}

	p, ts, err := svc.Price(ctx, usdc)
	require.NoError(t, err)
	require.True(t, p.Equal(decimal.NewFromInt(1)))
	require.Equal(t, now.Add(-10*time.Minute), ts)
}

func TestPriceStale(t *testing.T) {
	ctx := context.Background()
	svc, src, now := newTestService(t)

	src.obs[usdc] = observation{price: decimal.NewFromInt(1), at: now.Add(-2 * time.Hour)}

	_, _, err := svc.Price(ctx, usdc)
	require.ErrorIs(t, err, domain.ErrStalePrice)
}

func TestPriceInvalid(t *testing.T) {
	ctx := context.Background()
	svc, src, now := newTestService(t)

	src.obs[usdc] = observation{price: decimal.Zero, at: now}
	_, _, err := svc.Price(ctx, usdc)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	src.obs[usdc] = observation{price: decimal.NewFromInt(-3), at: now}
	_, _, err = svc.Price(ctx, usdc)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestOverride(t *testing.T) {
	ctx := context.Background()
	svc, src, now := newTestService(t)

	// Stale source price, but the override wins and never goes stale.
	src.obs[usdc] = observation{price: decimal.NewFromInt(1), at: now.Add(-48 * time.Hour)}

	require.ErrorIs(t, svc.SetOverride(ctx, alice, usdc, decimal.NewFromInt(2)), domain.ErrUnauthorized)
	require.ErrorIs(t, svc.SetOverride(ctx, admin, usdc, decimal.Zero), domain.ErrInvalidPrice)
	require.NoError(t, svc.SetOverride(ctx, admin, usdc, decimal.NewFromInt(2)))

	p, ts, err := svc.Price(ctx, usdc)
	require.NoError(t, err)
	require.True(t, p.Equal(decimal.NewFromInt(2)))
	require.Equal(t, now, ts)

	require.ErrorIs(t, svc.ClearOverride(ctx, alice, usdc), domain.ErrUnauthorized)
	require.NoError(t, svc.ClearOverride(ctx, admin, usdc))

	// Back to the source, which is stale.
	_, _, err = svc.Price(ctx, usdc)
	require.ErrorIs(t, err, domain.ErrStalePrice)
}

func TestPriceUnknownAsset(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, _, err := svc.Price(ctx, usdc)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
