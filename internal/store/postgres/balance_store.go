package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL. Credits and
// debits update the per-asset custodied total in the same transaction, so
// asset_totals always equals the sum of user balances.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given connection pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Credit adds amount to the user's balance for the asset.
func (s *BalanceStore) Credit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin credit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertBalance = `
		INSERT INTO balances (user_address, asset_address, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_address, asset_address)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`
	if _, err := tx.Exec(ctx, upsertBalance, user.Hex(), asset.Hex(), bigString(amount)); err != nil {
		return fmt.Errorf("postgres: credit balance: %w", err)
	}

	const upsertTotal = `
		INSERT INTO asset_totals (asset_address, total, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (asset_address)
		DO UPDATE SET total = asset_totals.total + EXCLUDED.total, updated_at = NOW()`
	if _, err := tx.Exec(ctx, upsertTotal, asset.Hex(), bigString(amount)); err != nil {
		return fmt.Errorf("postgres: credit total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit credit: %w", err)
	}
	return nil
}

// Debit subtracts amount from the user's balance for the asset. The WHERE
// clause enforces sufficiency, so a short balance fails without mutation.
func (s *BalanceStore) Debit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin debit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const debitBalance = `
		UPDATE balances SET amount = amount - $3, updated_at = NOW()
		WHERE user_address = $1 AND asset_address = $2 AND amount >= $3`
	tag, err := tx.Exec(ctx, debitBalance, user.Hex(), asset.Hex(), bigString(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}

	const debitTotal = `
		UPDATE asset_totals SET total = total - $2, updated_at = NOW()
		WHERE asset_address = $1`
	if _, err := tx.Exec(ctx, debitTotal, asset.Hex(), bigString(amount)); err != nil {
		return fmt.Errorf("postgres: debit total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit debit: %w", err)
	}
	return nil
}

// Get returns the user's balance for the asset, zero when no row exists.
func (s *BalanceStore) Get(ctx context.Context, user, asset common.Address) (*big.Int, error) {
	var amount string
	err := s.pool.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE user_address = $1 AND asset_address = $2`,
		user.Hex(), asset.Hex(),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("postgres: get balance: %w", err)
	}
	return parseBig(amount)
}

// ListByUser returns all non-zero balances held for the user.
func (s *BalanceStore) ListByUser(ctx context.Context, user common.Address) ([]domain.Balance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_address, asset_address, amount::text, updated_at
		 FROM balances WHERE user_address = $1 AND amount > 0
		 ORDER BY asset_address`, user.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		var userAddr, assetAddr, amount string

		if err := rows.Scan(&userAddr, &assetAddr, &amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan balance: %w", err)
		}
		b.User = common.HexToAddress(userAddr)
		b.Asset = common.HexToAddress(assetAddr)
		if b.Amount, err = parseBig(amount); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// TotalCustodied returns the total custodied amount of the asset across all users.
func (s *BalanceStore) TotalCustodied(ctx context.Context, asset common.Address) (*big.Int, error) {
	var total string
	err := s.pool.QueryRow(ctx,
		`SELECT total::text FROM asset_totals WHERE asset_address = $1`, asset.Hex(),
	).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("postgres: get custodied total: %w", err)
	}
	return parseBig(total)
}

var _ domain.BalanceStore = (*BalanceStore)(nil)
