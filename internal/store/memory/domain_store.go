package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// DomainStore implements domain.DomainStore in memory.
type DomainStore struct {
	mu      sync.RWMutex
	domains map[uint64]domain.SupportedDomain
}

// NewDomainStore creates an empty DomainStore.
func NewDomainStore() *DomainStore {
	return &DomainStore{domains: make(map[uint64]domain.SupportedDomain)}
}

// Create registers a new domain, rejecting duplicate ids.
func (s *DomainStore) Create(ctx context.Context, d domain.SupportedDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[d.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.domains[d.ID] = d
	return nil
}

// Update replaces an existing domain.
func (s *DomainStore) Update(ctx context.Context, d domain.SupportedDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[d.ID]; !ok {
		return domain.ErrNotFound
	}
	s.domains[d.ID] = d
	return nil
}

// Get returns the domain with the given id.
func (s *DomainStore) Get(ctx context.Context, id uint64) (domain.SupportedDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok {
		return domain.SupportedDomain{}, domain.ErrNotFound
	}
	return d, nil
}

// List returns all registered domains in id order.
func (s *DomainStore) List(ctx context.Context) ([]domain.SupportedDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SupportedDomain, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ domain.DomainStore = (*DomainStore)(nil)
