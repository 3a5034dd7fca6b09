package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// TransferStore implements domain.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *pgxpool.Pool
}

// NewTransferStore creates a new TransferStore backed by the given connection pool.
func NewTransferStore(pool *pgxpool.Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

const transferSelectCols = `id, user_address, asset_address, amount::text,
	gross_amount::text, fee::text, nonce, domain_id, target_address,
	state, initiated_at, completed_at`

func scanTransfer(row pgx.Row) (domain.Transfer, error) {
	var t domain.Transfer
	var id, user, asset, amount, gross, fee, target, state string
	var nonce, domainID int64

	err := row.Scan(
		&id, &user, &asset, &amount, &gross, &fee,
		&nonce, &domainID, &target, &state, &t.InitiatedAt, &t.CompletedAt,
	)
	if err != nil {
		return domain.Transfer{}, err
	}
	t.ID = common.HexToHash(id)
	t.User = common.HexToAddress(user)
	t.Asset = common.HexToAddress(asset)
	t.TargetAddress = common.HexToAddress(target)
	t.Nonce = uint64(nonce)
	t.DomainID = uint64(domainID)
	t.State = domain.TransferState(state)

	if t.Amount, err = parseBig(amount); err != nil {
		return domain.Transfer{}, err
	}
	if t.GrossAmount, err = parseBig(gross); err != nil {
		return domain.Transfer{}, err
	}
	if t.Fee, err = parseBig(fee); err != nil {
		return domain.Transfer{}, err
	}
	return t, nil
}

// Create inserts a new transfer record.
func (s *TransferStore) Create(ctx context.Context, t domain.Transfer) error {
	const query = `
		INSERT INTO transfers (
			id, user_address, asset_address, amount, gross_amount, fee,
			nonce, domain_id, target_address, state, initiated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		t.ID.Hex(), t.User.Hex(), t.Asset.Hex(),
		bigString(t.Amount), bigString(t.GrossAmount), bigString(t.Fee),
		int64(t.Nonce), int64(t.DomainID), t.TargetAddress.Hex(),
		string(t.State), t.InitiatedAt, t.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create transfer %s: %w", t.ID.Hex(), err)
	}
	return nil
}

// Get retrieves a transfer by its ID.
func (s *TransferStore) Get(ctx context.Context, id common.Hash) (domain.Transfer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+transferSelectCols+` FROM transfers WHERE id = $1`, id.Hex())

	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transfer{}, domain.ErrNotFound
		}
		return domain.Transfer{}, fmt.Errorf("postgres: get transfer %s: %w", id.Hex(), err)
	}
	return t, nil
}

// SetState moves a pending transfer to a terminal state. The pending guard in
// the WHERE clause makes the transition atomic, so a second finalization of
// the same transfer fails with ErrTransferCompleted.
func (s *TransferStore) SetState(ctx context.Context, id common.Hash, state domain.TransferState, at time.Time) error {
	const query = `
		UPDATE transfers SET state = $2, completed_at = $3
		WHERE id = $1 AND state = 'pending'`

	tag, err := s.pool.Exec(ctx, query, id.Hex(), string(state), at)
	if err != nil {
		return fmt.Errorf("postgres: set transfer %s state: %w", id.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM transfers WHERE id = $1)`, id.Hex(),
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check transfer %s: %w", id.Hex(), err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrTransferCompleted
	}
	return nil
}

// ListByUser returns the user's transfers with pagination and optional time
// filtering, newest first.
func (s *TransferStore) ListByUser(ctx context.Context, user common.Address, opts domain.ListOpts) ([]domain.Transfer, error) {
	query := `SELECT ` + transferSelectCols + ` FROM transfers WHERE user_address = $1`
	args := []any{user.Hex()}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND initiated_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND initiated_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY initiated_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// NextNonce increments and returns the user's transfer nonce.
func (s *TransferStore) NextNonce(ctx context.Context, user common.Address) (uint64, error) {
	const query = `
		INSERT INTO transfer_nonces (user_address, nonce) VALUES ($1, 1)
		ON CONFLICT (user_address) DO UPDATE SET nonce = transfer_nonces.nonce + 1
		RETURNING nonce`

	var nonce int64
	if err := s.pool.QueryRow(ctx, query, user.Hex()).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("postgres: next nonce for %s: %w", user.Hex(), err)
	}
	return uint64(nonce), nil
}

var _ domain.TransferStore = (*TransferStore)(nil)
