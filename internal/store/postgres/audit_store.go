package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. The audit_log
// table is append-only; rows are removed only by archival.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append records an event. Fields are stored as JSONB.
func (s *AuditStore) Append(ctx context.Context, e domain.Event) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit fields: %w", err)
	}

	const query = `INSERT INTO audit_log (id, event_type, fields, recorded_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, e.ID, string(e.Type), fieldsJSON, e.At); err != nil {
		return fmt.Errorf("postgres: append audit event %s: %w", e.Type, err)
	}
	return nil
}

// List returns audit events with pagination and optional time filtering,
// newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT id, event_type, fields, recorded_at FROM audit_log WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND recorded_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND recorded_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY recorded_at DESC"

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
		return nil, fmt.Errorf("postgres: list audit events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListBefore returns up to limit events recorded strictly before the cutoff,
// oldest first, for archival.
func (s *AuditStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_type, fields, recorded_at FROM audit_log
		 WHERE recorded_at < $1 ORDER BY recorded_at LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit events before %s: %w", before, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// DeleteBefore removes events recorded strictly before the cutoff and
// returns the number removed.
func (s *AuditStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM audit_log WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete audit events before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType string
		var fieldsJSON []byte

		if err := rows.Scan(&e.ID, &eventType, &fieldsJSON, &e.At); err != nil {
			return nil, fmt.Errorf("postgres: scan audit event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		if fieldsJSON != nil {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal audit fields: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ domain.AuditStore = (*AuditStore)(nil)
