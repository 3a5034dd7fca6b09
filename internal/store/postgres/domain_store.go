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

// DomainStore implements domain.DomainStore using PostgreSQL.
type DomainStore struct {
	pool *pgxpool.Pool
}

// NewDomainStore creates a new DomainStore backed by the given connection pool.
func NewDomainStore(pool *pgxpool.Pool) *DomainStore {
	return &DomainStore{pool: pool}
}

func scanDomain(row pgx.Row) (domain.SupportedDomain, error) {
	var d domain.SupportedDomain
	var id, gasLimit int64
	var relay string

	err := row.Scan(&id, &d.Name, &relay, &gasLimit, &d.FeeBps, &d.Active, &d.CreatedAt)
	if err != nil {
		return domain.SupportedDomain{}, err
	}
	d.ID = uint64(id)
	d.GasLimit = uint64(gasLimit)
	d.RelayAddress = common.HexToAddress(relay)
	return d, nil
}

// Create registers a new supported domain.
func (s *DomainStore) Create(ctx context.Context, d domain.SupportedDomain) error {
	const query = `
		INSERT INTO supported_domains (id, name, relay_address, gas_limit, fee_bps, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		int64(d.ID), d.Name, d.RelayAddress.Hex(), int64(d.GasLimit),
		d.FeeBps, d.Active, d.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create domain %d: %w", d.ID, err)
	}
	return nil
}

// Update replaces the mutable fields of a supported domain.
func (s *DomainStore) Update(ctx context.Context, d domain.SupportedDomain) error {
	const query = `
		UPDATE supported_domains SET
			name          = $2,
			relay_address = $3,
			gas_limit     = $4,
			fee_bps       = $5,
			active        = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		int64(d.ID), d.Name, d.RelayAddress.Hex(), int64(d.GasLimit), d.FeeBps, d.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: update domain %d: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a supported domain by ID.
func (s *DomainStore) Get(ctx context.Context, id uint64) (domain.SupportedDomain, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, relay_address, gas_limit, fee_bps, active, created_at
		 FROM supported_domains WHERE id = $1`, int64(id))

	d, err := scanDomain(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SupportedDomain{}, domain.ErrNotFound
		}
		return domain.SupportedDomain{}, fmt.Errorf("postgres: get domain %d: %w", id, err)
	}
	return d, nil
}

// List returns all supported domains ordered by ID.
func (s *DomainStore) List(ctx context.Context) ([]domain.SupportedDomain, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, relay_address, gas_limit, fee_bps, active, created_at
		 FROM supported_domains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list domains: %w", err)
	}
	defer rows.Close()

	var domains []domain.SupportedDomain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

var _ domain.DomainStore = (*DomainStore)(nil)
