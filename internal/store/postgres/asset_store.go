package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AssetStore implements domain.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *pgxpool.Pool
}

// NewAssetStore creates a new AssetStore backed by the given connection pool.
func NewAssetStore(pool *pgxpool.Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Create registers a new asset.
func (s *AssetStore) Create(ctx context.Context, a domain.Asset) error {
	const query = `
		INSERT INTO assets (address, symbol, decimals, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		a.Address.Hex(), a.Symbol, int16(a.Decimals), a.Active, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create asset %s: %w", a.Symbol, err)
	}
	return nil
}

// Get retrieves an asset by address.
func (s *AssetStore) Get(ctx context.Context, addr common.Address) (domain.Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT address, symbol, decimals, active, created_at
		 FROM assets WHERE address = $1`, addr.Hex())

	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Asset{}, domain.ErrNotFound
		}
		return domain.Asset{}, fmt.Errorf("postgres: get asset %s: %w", addr.Hex(), err)
	}
	return a, nil
}

// SetActive flips an asset's active flag.
func (s *AssetStore) SetActive(ctx context.Context, addr common.Address, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE assets SET active = $2 WHERE address = $1`, addr.Hex(), active)
	if err != nil {
		return fmt.Errorf("postgres: set asset %s active: %w", addr.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all registered assets ordered by registration time.
func (s *AssetStore) List(ctx context.Context) ([]domain.Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, symbol, decimals, active, created_at
		 FROM assets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanAsset(row pgx.Row) (domain.Asset, error) {
	var a domain.Asset
	var addr string
	var decimals int16

	if err := row.Scan(&addr, &a.Symbol, &decimals, &a.Active, &a.CreatedAt); err != nil {
		return domain.Asset{}, err
	}
	a.Address = common.HexToAddress(addr)
	a.Decimals = uint8(decimals)
	return a, nil
}

var _ domain.AssetStore = (*AssetStore)(nil)
