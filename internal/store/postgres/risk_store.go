package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// RiskProfileStore implements domain.RiskProfileStore using PostgreSQL.
type RiskProfileStore struct {
	pool *pgxpool.Pool
}

// NewRiskProfileStore creates a new RiskProfileStore backed by the given pool.
func NewRiskProfileStore(pool *pgxpool.Pool) *RiskProfileStore {
	return &RiskProfileStore{pool: pool}
}

// Put inserts or replaces the user's risk profile.
func (s *RiskProfileStore) Put(ctx context.Context, p domain.RiskProfile) error {
	const query = `
		INSERT INTO risk_profiles (
			user_address, max_drawdown, max_leverage, max_concentration,
			max_correlation, stop_loss_threshold, take_profit_threshold,
			active, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_address) DO UPDATE SET
			max_drawdown          = EXCLUDED.max_drawdown,
			max_leverage          = EXCLUDED.max_leverage,
			max_concentration     = EXCLUDED.max_concentration,
			max_correlation       = EXCLUDED.max_correlation,
			stop_loss_threshold   = EXCLUDED.stop_loss_threshold,
			take_profit_threshold = EXCLUDED.take_profit_threshold,
			active                = EXCLUDED.active,
			updated_at            = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		p.User.Hex(), p.MaxDrawdown, p.MaxLeverage, p.MaxConcentration,
		p.MaxCorrelation, p.StopLossThreshold, p.TakeProfitThreshold,
		p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put risk profile %s: %w", p.User.Hex(), err)
	}
	return nil
}

// Get retrieves the user's risk profile.
func (s *RiskProfileStore) Get(ctx context.Context, user common.Address) (domain.RiskProfile, error) {
	var p domain.RiskProfile
	var addr string

	err := s.pool.QueryRow(ctx,
		`SELECT user_address, max_drawdown, max_leverage, max_concentration,
		        max_correlation, stop_loss_threshold, take_profit_threshold,
		        active, updated_at
		 FROM risk_profiles WHERE user_address = $1`, user.Hex(),
	).Scan(
		&addr, &p.MaxDrawdown, &p.MaxLeverage, &p.MaxConcentration,
		&p.MaxCorrelation, &p.StopLossThreshold, &p.TakeProfitThreshold,
		&p.Active, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskProfile{}, domain.ErrNotFound
		}
		return domain.RiskProfile{}, fmt.Errorf("postgres: get risk profile %s: %w", user.Hex(), err)
	}
	p.User = common.HexToAddress(addr)
	return p, nil
}

// AssetRiskStore implements domain.AssetRiskStore using PostgreSQL.
type AssetRiskStore struct {
	pool *pgxpool.Pool
}

// NewAssetRiskStore creates a new AssetRiskStore backed by the given pool.
func NewAssetRiskStore(pool *pgxpool.Pool) *AssetRiskStore {
	return &AssetRiskStore{pool: pool}
}

// Put inserts or replaces the asset's risk metric.
func (s *AssetRiskStore) Put(ctx context.Context, m domain.AssetRiskMetric) error {
	const query = `
		INSERT INTO asset_risk_metrics (
			asset_address, volatility, correlation, liquidity, updated_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_address) DO UPDATE SET
			volatility  = EXCLUDED.volatility,
			correlation = EXCLUDED.correlation,
			liquidity   = EXCLUDED.liquidity,
			updated_by  = EXCLUDED.updated_by,
			updated_at  = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		m.Asset.Hex(), m.Volatility, m.Correlation, m.Liquidity,
		m.UpdatedBy.Hex(), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put asset risk %s: %w", m.Asset.Hex(), err)
	}
	return nil
}

// Get retrieves the asset's risk metric.
func (s *AssetRiskStore) Get(ctx context.Context, asset common.Address) (domain.AssetRiskMetric, error) {
	var m domain.AssetRiskMetric
	var addr, updatedBy string

	err := s.pool.QueryRow(ctx,
		`SELECT asset_address, volatility, correlation, liquidity, updated_by, updated_at
		 FROM asset_risk_metrics WHERE asset_address = $1`, asset.Hex(),
	).Scan(&addr, &m.Volatility, &m.Correlation, &m.Liquidity, &updatedBy, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AssetRiskMetric{}, domain.ErrNotFound
		}
		return domain.AssetRiskMetric{}, fmt.Errorf("postgres: get asset risk %s: %w", asset.Hex(), err)
	}
	m.Asset = common.HexToAddress(addr)
	m.UpdatedBy = common.HexToAddress(updatedBy)
	return m, nil
}

// PositionRiskStore implements domain.PositionRiskStore using PostgreSQL.
type PositionRiskStore struct {
	pool *pgxpool.Pool
}

// NewPositionRiskStore creates a new PositionRiskStore backed by the given pool.
func NewPositionRiskStore(pool *pgxpool.Pool) *PositionRiskStore {
	return &PositionRiskStore{pool: pool}
}

// Put inserts or replaces the computed risk for a (user, asset) position.
func (s *PositionRiskStore) Put(ctx context.Context, r domain.PositionRisk) error {
	const query = `
		INSERT INTO position_risks (
			user_address, asset_address, score, amount, leverage, concentration, assessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_address, asset_address) DO UPDATE SET
			score         = EXCLUDED.score,
			amount        = EXCLUDED.amount,
			leverage      = EXCLUDED.leverage,
			concentration = EXCLUDED.concentration,
			assessed_at   = EXCLUDED.assessed_at`

	_, err := s.pool.Exec(ctx, query,
		r.User.Hex(), r.Asset.Hex(), r.Score, bigString(r.Amount),
		r.Leverage, r.Concentration, r.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put position risk: %w", err)
	}
	return nil
}

// Get retrieves the last computed risk for a (user, asset) position.
func (s *PositionRiskStore) Get(ctx context.Context, user, asset common.Address) (domain.PositionRisk, error) {
	var r domain.PositionRisk
	var userAddr, assetAddr, amount string

	err := s.pool.QueryRow(ctx,
		`SELECT user_address, asset_address, score, amount::text, leverage, concentration, assessed_at
		 FROM position_risks WHERE user_address = $1 AND asset_address = $2`,
		user.Hex(), asset.Hex(),
	).Scan(&userAddr, &assetAddr, &r.Score, &amount, &r.Leverage, &r.Concentration, &r.AssessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PositionRisk{}, domain.ErrNotFound
		}
		return domain.PositionRisk{}, fmt.Errorf("postgres: get position risk: %w", err)
	}
	r.User = common.HexToAddress(userAddr)
	r.Asset = common.HexToAddress(assetAddr)
	if r.Amount, err = parseBig(amount); err != nil {
		return domain.PositionRisk{}, err
	}
	return r, nil
}

var (
	_ domain.RiskProfileStore  = (*RiskProfileStore)(nil)
	_ domain.AssetRiskStore    = (*AssetRiskStore)(nil)
	_ domain.PositionRiskStore = (*PositionRiskStore)(nil)
)
