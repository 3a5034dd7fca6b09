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

// StopLossStore implements domain.StopLossStore using PostgreSQL.
type StopLossStore struct {
	pool *pgxpool.Pool
}

// NewStopLossStore creates a new StopLossStore backed by the given connection pool.
func NewStopLossStore(pool *pgxpool.Pool) *StopLossStore {
	return &StopLossStore{pool: pool}
}

const stopLossSelectCols = `id, user_address, asset_address, stop_price, trigger_price,
	active, created_at, updated_at, triggered_at`

func scanStopLoss(row pgx.Row) (domain.StopLossOrder, error) {
	var o domain.StopLossOrder
	var user, asset string

	err := row.Scan(
		&o.ID, &user, &asset, &o.StopPrice, &o.TriggerPrice,
		&o.Active, &o.CreatedAt, &o.UpdatedAt, &o.TriggeredAt,
	)
	if err != nil {
		return domain.StopLossOrder{}, err
	}
	o.User = common.HexToAddress(user)
	o.Asset = common.HexToAddress(asset)
	return o, nil
}

// Create inserts a new stop-loss order.
func (s *StopLossStore) Create(ctx context.Context, o domain.StopLossOrder) error {
	const query = `
		INSERT INTO stoploss_orders (
			id, user_address, asset_address, stop_price, trigger_price,
			active, created_at, updated_at, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.User.Hex(), o.Asset.Hex(), o.StopPrice, o.TriggerPrice,
		o.Active, o.CreatedAt, o.UpdatedAt, o.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create stop-loss %s: %w", o.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a stop-loss order.
func (s *StopLossStore) Update(ctx context.Context, o domain.StopLossOrder) error {
	const query = `
		UPDATE stoploss_orders SET
			stop_price    = $2,
			trigger_price = $3,
			active        = $4,
			updated_at    = $5,
			triggered_at  = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		o.ID, o.StopPrice, o.TriggerPrice, o.Active, o.UpdatedAt, o.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update stop-loss %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a stop-loss order by ID.
func (s *StopLossStore) Get(ctx context.Context, id string) (domain.StopLossOrder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stopLossSelectCols+` FROM stoploss_orders WHERE id = $1`, id)

	o, err := scanStopLoss(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StopLossOrder{}, domain.ErrNotFound
		}
		return domain.StopLossOrder{}, fmt.Errorf("postgres: get stop-loss %s: %w", id, err)
	}
	return o, nil
}

// ListByUser returns all stop-loss orders placed by the user, newest first.
func (s *StopLossStore) ListByUser(ctx context.Context, user common.Address) ([]domain.StopLossOrder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stopLossSelectCols+` FROM stoploss_orders
		 WHERE user_address = $1 ORDER BY created_at DESC`, user.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list stop-loss orders: %w", err)
	}
	defer rows.Close()
	return collectStopLoss(rows)
}

// ListActive returns all active stop-loss orders across users.
func (s *StopLossStore) ListActive(ctx context.Context) ([]domain.StopLossOrder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stopLossSelectCols+` FROM stoploss_orders
		 WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active stop-loss orders: %w", err)
	}
	defer rows.Close()
	return collectStopLoss(rows)
}

func collectStopLoss(rows pgx.Rows) ([]domain.StopLossOrder, error) {
	var orders []domain.StopLossOrder
	for rows.Next() {
		o, err := scanStopLoss(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stop-loss: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

var _ domain.StopLossStore = (*StopLossStore)(nil)
