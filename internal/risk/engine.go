// Package risk implements the risk engine: user risk profiles, assessor-
// supplied asset metrics, position risk scoring, stop-loss orders, and the
// global emergency stop that gates every ledger-mutating operation.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
	"github.com/MeganTobias/chainvault/internal/pricefeed"
)

// Engine evaluates positions against user-declared risk bounds. It also owns
// the emergency stop and implements domain.Gate for the custody ledger and
// transfer coordinator.
type Engine struct {
	profiles  domain.RiskProfileStore
	metrics   domain.AssetRiskStore
	positions domain.PositionRiskStore
	stops     domain.StopLossStore
	balances  domain.BalanceStore
	prices    pricefeed.Reader
	acl       *domain.AccessList
	rec       *events.Recorder
	logger    *slog.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewEngine creates an Engine with all required dependencies.
func NewEngine(
	profiles domain.RiskProfileStore,
	metrics domain.AssetRiskStore,
	positions domain.PositionRiskStore,
	stops domain.StopLossStore,
	balances domain.BalanceStore,
	prices pricefeed.Reader,
	acl *domain.AccessList,
	rec *events.Recorder,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		profiles:  profiles,
		metrics:   metrics,
		positions: positions,
		stops:     stops,
		balances:  balances,
		prices:    prices,
		acl:       acl,
		rec:       rec,
		logger:    logger.With(slog.String("component", "risk")),
	}
}

// Check implements domain.Gate: it fails with ErrEmergencyStop while the
// emergency stop is active.
func (e *Engine) Check(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return domain.ErrEmergencyStop
	}
	return nil
}

// SetUserRiskProfile validates and stores the user's risk bounds, activating
// the profile. Out-of-range fields are rejected, never clamped.
func (e *Engine) SetUserRiskProfile(ctx context.Context, user common.Address, p domain.RiskProfile) error {
	if user == (common.Address{}) {
		return domain.ErrInvalidInput
	}
	if err := validateProfile(p); err != nil {
		return err
	}

	p.User = user
	p.Active = true
	p.UpdatedAt = time.Now().UTC()
	if err := e.profiles.Put(ctx, p); err != nil {
		return fmt.Errorf("risk: put profile %s: %w", user.Hex(), err)
	}

	e.rec.Emit(ctx, domain.EventProfileUpdated, map[string]any{
		"user":              user.Hex(),
		"max_drawdown":      p.MaxDrawdown,
		"max_leverage":      p.MaxLeverage,
		"max_concentration": p.MaxConcentration,
		"max_correlation":   p.MaxCorrelation,
	})
	return nil
}

func validateProfile(p domain.RiskProfile) error {
	switch {
	case p.MaxDrawdown < 0 || p.MaxDrawdown > domain.MaxDrawdownBound:
		return domain.ErrInvalidInput
	case p.MaxLeverage < 0 || p.MaxLeverage > domain.MaxLeverageBound:
		return domain.ErrInvalidInput
	case p.MaxConcentration < 0 || p.MaxConcentration > domain.MaxConcentrationBound:
		return domain.ErrInvalidInput
	case p.MaxCorrelation < 0 || p.MaxCorrelation > domain.MaxCorrelationBound:
		return domain.ErrInvalidInput
	case p.StopLossThreshold < 0 || p.StopLossThreshold > domain.BpsDenominator:
		return domain.ErrInvalidInput
	case p.TakeProfitThreshold < 0 || p.TakeProfitThreshold > domain.BpsDenominator:
		return domain.ErrInvalidInput
	}
	return nil
}

// Profile returns the user's risk profile.
func (e *Engine) Profile(ctx context.Context, user common.Address) (domain.RiskProfile, error) {
	return e.profiles.Get(ctx, user)
}

// UpdateAssetRisk stores assessor-supplied risk inputs for an asset. Risk
// assessor role only.
func (e *Engine) UpdateAssetRisk(ctx context.Context, caller, asset common.Address, volatility, correlation, liquidity int64) error {
	if err := e.acl.Authorize(domain.RoleRiskAssessor, caller); err != nil {
		return err
	}
	if asset == (common.Address{}) {
		return domain.ErrInvalidInput
	}
	for _, v := range []int64{volatility, correlation, liquidity} {
		if v < 0 || v > domain.BpsDenominator {
			return domain.ErrInvalidInput
		}
	}

	m := domain.AssetRiskMetric{
		Asset:       asset,
		Volatility:  volatility,
		Correlation: correlation,
		Liquidity:   liquidity,
		UpdatedBy:   caller,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := e.metrics.Put(ctx, m); err != nil {
		return fmt.Errorf("risk: put asset metric %s: %w", asset.Hex(), err)
	}

	e.rec.Emit(ctx, domain.EventAssetRiskUpdated, map[string]any{
		"asset":       asset.Hex(),
		"volatility":  volatility,
		"correlation": correlation,
		"liquidity":   liquidity,
		"by":          caller.Hex(),
	})
	return nil
}

// AssetRisk returns the stored metric for an asset.
func (e *Engine) AssetRisk(ctx context.Context, asset common.Address) (domain.AssetRiskMetric, error) {
	return e.metrics.Get(ctx, asset)
}

// AssessPositionRisk scores the user's holding of amount in asset and stores
// the result. It requires an active profile and an assessed asset metric. A
// score above HighRiskThreshold raises a position-risk alert event; it is not
// a failure.
func (e *Engine) AssessPositionRisk(ctx context.Context, user, asset common.Address, amount *big.Int) (domain.PositionRisk, error) {
	if err := e.Check(ctx); err != nil {
		return domain.PositionRisk{}, err
	}
	if user == (common.Address{}) || amount == nil || amount.Sign() < 0 {
		return domain.PositionRisk{}, domain.ErrInvalidInput
	}

	profile, err := e.profiles.Get(ctx, user)
	if err != nil || !profile.Active {
		return domain.PositionRisk{}, domain.ErrRiskProfileMissing
	}
	metric, err := e.metrics.Get(ctx, asset)
	if err != nil {
		return domain.PositionRisk{}, domain.ErrRiskNotAssessed
	}

	concentration, err := e.concentrationBps(ctx, user, asset, amount)
	if err != nil {
		return domain.PositionRisk{}, err
	}

	// Spot custody carries no per-position leverage; the user's declared
	// maximum is taken as the leverage input.
	leverage := profile.MaxLeverage

	score := Score(metric.Volatility, metric.Correlation, metric.Liquidity, leverage, concentration)

	pr := domain.PositionRisk{
		User:          user,
		Asset:         asset,
		Score:         score,
		Amount:        new(big.Int).Set(amount),
		Leverage:      leverage,
		Concentration: concentration,
		AssessedAt:    time.Now().UTC(),
	}
	if err := e.positions.Put(ctx, pr); err != nil {
		return domain.PositionRisk{}, fmt.Errorf("risk: put position risk: %w", err)
	}

	if score > HighRiskThreshold {
		e.logger.WarnContext(ctx, "high-risk position",
			slog.String("user", user.Hex()),
			slog.String("asset", asset.Hex()),
			slog.Int64("score", score),
		)
		e.rec.Emit(ctx, domain.EventPositionRiskAlert, map[string]any{
			"user":  user.Hex(),
			"asset": asset.Hex(),
			"score": score,
		})
	}
	return pr, nil
}

// concentrationBps prices the position and the user's whole portfolio and
// returns the position's share in basis points. Held assets without a usable
// price are skipped from the portfolio value; an unpriceable or empty
// portfolio counts the position as fully concentrated.
func (e *Engine) concentrationBps(ctx context.Context, user, asset common.Address, amount *big.Int) (int64, error) {
	price, _, err := e.prices.Price(ctx, asset)
	if err != nil {
		if errors.Is(err, domain.ErrStalePrice) || errors.Is(err, domain.ErrInvalidPrice) {
			return 0, err
		}
		return 0, fmt.Errorf("risk: position price: %w", err)
	}
	positionValue := price.Mul(decimal.NewFromBigInt(amount, 0))

	balances, err := e.balances.ListByUser(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("risk: portfolio balances: %w", err)
	}

	portfolioValue := decimal.Zero
	for _, b := range balances {
		p, _, perr := e.prices.Price(ctx, b.Asset)
		if perr != nil {
			e.logger.DebugContext(ctx, "skipping unpriced balance",
				slog.String("asset", b.Asset.Hex()),
				slog.String("error", perr.Error()),
			)
			continue
		}
		portfolioValue = portfolioValue.Add(p.Mul(decimal.NewFromBigInt(b.Amount, 0)))
	}

	if !portfolioValue.IsPositive() {
		return domain.BpsDenominator, nil
	}
	conc := positionValue.Mul(decimal.NewFromInt(domain.BpsDenominator)).Div(portfolioValue)
	bps := conc.IntPart()
	if bps > domain.BpsDenominator {
		bps = domain.BpsDenominator
	}
	return bps, nil
}

// PositionRisk returns the stored score for (user, asset).
func (e *Engine) PositionRisk(ctx context.Context, user, asset common.Address) (domain.PositionRisk, error) {
	return e.positions.Get(ctx, user, asset)
}

// CheckRiskThresholds compares the stored position risk and the asset metric
// against the user's declared bounds. It returns true when the position is
// within every limit. The drawdown check uses a quarter of the asset's
// volatility as the worst-case drawdown proxy.
func (e *Engine) CheckRiskThresholds(ctx context.Context, user, asset common.Address) (bool, error) {
	profile, err := e.profiles.Get(ctx, user)
	if err != nil || !profile.Active {
		return false, domain.ErrRiskProfileMissing
	}
	metric, err := e.metrics.Get(ctx, asset)
	if err != nil {
		return false, domain.ErrRiskNotAssessed
	}
	pr, err := e.positions.Get(ctx, user, asset)
	if err != nil {
		return false, domain.ErrRiskNotAssessed
	}

	drawdownProxy := metric.Volatility / 4

	within := pr.Score < HighRiskThreshold &&
		pr.Concentration <= profile.MaxConcentration &&
		pr.Leverage <= profile.MaxLeverage &&
		metric.Correlation <= profile.MaxCorrelation &&
		drawdownProxy <= profile.MaxDrawdown
	return within, nil
}

// TriggerEmergencyStop halts all risk-gated operations. Admin only.
func (e *Engine) TriggerEmergencyStop(ctx context.Context, caller common.Address) error {
	if err := e.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.logger.ErrorContext(ctx, "emergency stop triggered", slog.String("by", caller.Hex()))
	e.rec.Emit(ctx, domain.EventEmergencyStop, map[string]any{"by": caller.Hex()})
	return nil
}

// ClearEmergencyStop resumes risk-gated operations. Admin only.
func (e *Engine) ClearEmergencyStop(ctx context.Context, caller common.Address) error {
	if err := e.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "emergency stop cleared", slog.String("by", caller.Hex()))
	e.rec.Emit(ctx, domain.EventEmergencyClear, map[string]any{"by": caller.Hex()})
	return nil
}

// Stopped reports whether the emergency stop is active.
func (e *Engine) Stopped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stopped
}

var _ domain.Gate = (*Engine)(nil)
