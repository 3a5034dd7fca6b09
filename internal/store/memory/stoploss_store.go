package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// StopLossStore implements domain.StopLossStore in memory.
type StopLossStore struct {
	mu     sync.RWMutex
	orders map[string]domain.StopLossOrder
}

// NewStopLossStore creates an empty StopLossStore.
func NewStopLossStore() *StopLossStore {
	return &StopLossStore{orders: make(map[string]domain.StopLossOrder)}
}

// Create inserts a new order, rejecting duplicate ids.
func (s *StopLossStore) Create(ctx context.Context, o domain.StopLossOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.orders[o.ID] = o
	return nil
}

// Update replaces an existing order.
func (s *StopLossStore) Update(ctx context.Context, o domain.StopLossOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	s.orders[o.ID] = o
	return nil
}

// Get returns the order with the given id.
func (s *StopLossStore) Get(ctx context.Context, id string) (domain.StopLossOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.StopLossOrder{}, domain.ErrNotFound
	}
	return o, nil
}

// ListByUser returns all orders owned by the user, newest first.
func (s *StopLossStore) ListByUser(ctx context.Context, user common.Address) ([]domain.StopLossOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StopLossOrder
	for _, o := range s.orders {
		if o.User == user {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

// ListActive returns all active orders across users.
func (s *StopLossStore) ListActive(ctx context.Context) ([]domain.StopLossOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StopLossOrder
	for _, o := range s.orders {
		if o.Active {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

func sortOrders(orders []domain.StopLossOrder) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

var _ domain.StopLossStore = (*StopLossStore)(nil)
