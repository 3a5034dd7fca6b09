package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AuditStore implements domain.AuditStore as an in-memory append-only slice.
type AuditStore struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append records an event.
func (s *AuditStore) Append(ctx context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// List returns events newest first with pagination and time filtering.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if opts.Since != nil && e.At.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.At.After(*opts.Until) {
			continue
		}
		out = append(out, e)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListBefore returns up to limit events recorded strictly before the cutoff,
// oldest first.
func (s *AuditStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Event
	for _, e := range s.events {
		if !e.At.Before(before) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DeleteBefore removes events recorded strictly before the cutoff and returns
// the number removed.
func (s *AuditStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.At.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

var _ domain.AuditStore = (*AuditStore)(nil)
