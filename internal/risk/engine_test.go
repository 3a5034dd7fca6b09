package risk

import (
	"context"
	"io"
	"log/slog"
	"math/big"
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
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assessor = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	usdc     = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth     = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

// fakePrices serves fixed prices per asset; missing assets fail with
// ErrStalePrice.
type fakePrices struct {
	prices map[common.Address]decimal.Decimal
}

func (f *fakePrices) Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error) {
	p, ok := f.prices[asset]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrStalePrice
	}
	return p, time.Now().UTC(), nil
}

type testEnv struct {
	engine   *Engine
	balances *memory.BalanceStore
	prices   *fakePrices
}

func newTestEngine(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acl := domain.NewAccessList()
	acl.Grant(domain.RoleAdmin, admin)
	acl.Grant(domain.RoleRiskAssessor, assessor)
	rec := events.NewRecorder(memory.NewAuditStore(), logger)

	balances := memory.NewBalanceStore()
	prices := &fakePrices{prices: make(map[common.Address]decimal.Decimal)}
	engine := NewEngine(
		memory.NewRiskProfileStore(),
		memory.NewAssetRiskStore(),
		memory.NewPositionRiskStore(),
		memory.NewStopLossStore(),
		balances,
		prices,
		acl,
		rec,
		logger,
	)
	return &testEnv{engine: engine, balances: balances, prices: prices}
}

func validProfile() domain.RiskProfile {
	return domain.RiskProfile{
		MaxDrawdown:         1500,
		MaxLeverage:         300,
		MaxConcentration:    5000,
		MaxCorrelation:      7000,
		StopLossThreshold:   500,
		TakeProfitThreshold: 2000,
	}
}

func TestSetUserRiskProfileBounds(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))

	stored, err := env.engine.Profile(ctx, alice)
	require.NoError(t, err)
	require.True(t, stored.Active)
	require.Equal(t, int64(1500), stored.MaxDrawdown)

	mutate := func(fn func(*domain.RiskProfile)) domain.RiskProfile {
		p := validProfile()
		fn(&p)
		return p
	}
	rejected := []struct {
		name    string
		profile domain.RiskProfile
	}{
		{"drawdown above bound", mutate(func(p *domain.RiskProfile) { p.MaxDrawdown = 2001 })},
		{"negative drawdown", mutate(func(p *domain.RiskProfile) { p.MaxDrawdown = -1 })},
		{"leverage above bound", mutate(func(p *domain.RiskProfile) { p.MaxLeverage = 1001 })},
		{"concentration above bound", mutate(func(p *domain.RiskProfile) { p.MaxConcentration = 5001 })},
		{"correlation above bound", mutate(func(p *domain.RiskProfile) { p.MaxCorrelation = 8001 })},
		{"stop-loss threshold above denominator", mutate(func(p *domain.RiskProfile) { p.StopLossThreshold = 10001 })},
		{"take-profit threshold above denominator", mutate(func(p *domain.RiskProfile) { p.TakeProfitThreshold = 10001 })},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			err := env.engine.SetUserRiskProfile(ctx, alice, tt.profile)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	// Rejection never clamps: the stored profile is unchanged.
	stored, err = env.engine.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(1500), stored.MaxDrawdown)
}

func TestUpdateAssetRiskAuthorization(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	err := env.engine.UpdateAssetRisk(ctx, alice, usdc, 1000, 2000, 9000)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 1000, 2000, 9000))

	m, err := env.engine.AssetRisk(ctx, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(1000), m.Volatility)
	require.Equal(t, assessor, m.UpdatedBy)

	err = env.engine.UpdateAssetRisk(ctx, assessor, usdc, 10001, 0, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessPositionRiskPreconditions(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	_, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(100))
	require.ErrorIs(t, err, domain.ErrRiskProfileMissing)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))

	_, err = env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(100))
	require.ErrorIs(t, err, domain.ErrRiskNotAssessed)
}

func TestAssessPositionRisk(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 2000, 1000, 9000))

	env.prices.prices[usdc] = decimal.NewFromInt(1)
	env.prices.prices[weth] = decimal.NewFromInt(2000)
	require.NoError(t, env.balances.Credit(ctx, alice, usdc, big.NewInt(1000)))
	require.NoError(t, env.balances.Credit(ctx, alice, weth, big.NewInt(1)))

	// Position 1000 USDC at $1 in a $3000 portfolio: 3333 bps concentration.
	pr, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(3333), pr.Concentration)
	require.Equal(t, int64(300), pr.Leverage)

	// 30*2000 + 20*300 + 25*3333 + 15*1000 + 10*1000, over 100.
	require.Equal(t, int64(1743), pr.Score)

	stored, err := env.engine.PositionRisk(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, pr.Score, stored.Score)

	// Same inputs, same score.
	again, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, pr.Score, again.Score)
}

func TestAssessPositionRiskEmptyPortfolio(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 0, 0, 10000))
	env.prices.prices[usdc] = decimal.NewFromInt(1)

	// No balances at all: the position counts as fully concentrated.
	pr, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, int64(domain.BpsDenominator), pr.Concentration)
}

func TestAssessPositionRiskStalePrice(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 0, 0, 10000))

	_, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(500))
	require.ErrorIs(t, err, domain.ErrStalePrice)
}

func TestCheckRiskThresholds(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 2000, 1000, 9000))
	env.prices.prices[usdc] = decimal.NewFromInt(1)
	require.NoError(t, env.balances.Credit(ctx, alice, usdc, big.NewInt(1000)))

	_, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(100))
	require.NoError(t, err)

	within, err := env.engine.CheckRiskThresholds(ctx, alice, usdc)
	require.NoError(t, err)
	require.True(t, within)

	// Volatility pushes the drawdown proxy past the declared bound.
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 8000, 1000, 9000))
	within, err = env.engine.CheckRiskThresholds(ctx, alice, usdc)
	require.NoError(t, err)
	require.False(t, within)

	_, err = env.engine.CheckRiskThresholds(ctx, alice, weth)
	require.ErrorIs(t, err, domain.ErrRiskNotAssessed)
}

func TestCheckRiskThresholdsWithinLimits(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	p := validProfile()
	p.MaxConcentration = 5000
	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, p))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 2000, 1000, 9000))

	env.prices.prices[usdc] = decimal.NewFromInt(1)
	env.prices.prices[weth] = decimal.NewFromInt(1)
	require.NoError(t, env.balances.Credit(ctx, alice, usdc, big.NewInt(1000)))
	require.NoError(t, env.balances.Credit(ctx, alice, weth, big.NewInt(3000)))

	// 25% concentration, mild metrics: every limit holds.
	_, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(1000))
	require.NoError(t, err)

	within, err := env.engine.CheckRiskThresholds(ctx, alice, usdc)
	require.NoError(t, err)
	require.True(t, within)
}

func TestEmergencyStop(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	require.NoError(t, env.engine.SetUserRiskProfile(ctx, alice, validProfile()))
	require.NoError(t, env.engine.UpdateAssetRisk(ctx, assessor, usdc, 0, 0, 10000))
	env.prices.prices[usdc] = decimal.NewFromInt(1)

	require.ErrorIs(t, env.engine.TriggerEmergencyStop(ctx, alice), domain.ErrUnauthorized)

	require.NoError(t, env.engine.TriggerEmergencyStop(ctx, admin))
	require.True(t, env.engine.Stopped())
	require.ErrorIs(t, env.engine.Check(ctx), domain.ErrEmergencyStop)

	_, err := env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(1))
	require.ErrorIs(t, err, domain.ErrEmergencyStop)

	require.NoError(t, env.engine.ClearEmergencyStop(ctx, admin))
	require.False(t, env.engine.Stopped())
	require.NoError(t, env.engine.Check(ctx))

	_, err = env.engine.AssessPositionRisk(ctx, alice, usdc, big.NewInt(1))
	require.NoError(t, err)
}
