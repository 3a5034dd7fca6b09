package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Basis-point bounds for user risk profiles. Values outside these bounds are
// rejected, not clamped.
const (
	MaxDrawdownBound      = 2000
	MaxLeverageBound      = 1000
	MaxConcentrationBound = 5000
	MaxCorrelationBound   = 8000
	BpsDenominator        = 10000
)

// RiskProfile is a user-declared set of risk bounds, all in basis points.
type RiskProfile struct {
	User                common.Address
	MaxDrawdown         int64
	MaxLeverage         int64
	MaxConcentration    int64
	MaxCorrelation      int64
	StopLossThreshold   int64
	TakeProfitThreshold int64
	Active              bool
	UpdatedAt           time.Time
}

// AssetRiskMetric holds assessor-supplied risk inputs for one asset, in basis
// points.
type AssetRiskMetric struct {
	Asset       common.Address
	Volatility  int64
	Correlation int64
	Liquidity   int64
	UpdatedBy   common.Address
	UpdatedAt   time.Time
}

// PositionRisk is the last computed risk score for a (user, asset) position
// together with the inputs it was computed against. Derived data; balances
// remain the source of truth.
type PositionRisk struct {
	User          common.Address
	Asset         common.Address
	Score         int64
	Amount        *big.Int
	Leverage      int64
	Concentration int64
	AssessedAt    time.Time
}

// StopLossOrder is a standing instruction to flag a position when the asset
// price crosses StopPrice. Only the owning user may mutate it.
type StopLossOrder struct {
	ID           string
	User         common.Address
	Asset        common.Address
	StopPrice    decimal.Decimal
	TriggerPrice decimal.Decimal
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	TriggeredAt  *time.Time
}
