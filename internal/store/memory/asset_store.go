package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AssetStore implements domain.AssetStore in memory.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[common.Address]domain.Asset
}

// NewAssetStore creates an empty AssetStore.
func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[common.Address]domain.Asset)}
}

// Create registers an asset, rejecting duplicates.
func (s *AssetStore) Create(ctx context.Context, a domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.Address]; ok {
		return domain.ErrAlreadyExists
	}
	s.assets[a.Address] = a
	return nil
}

// Get returns the asset registered at addr.
func (s *AssetStore) Get(ctx context.Context, addr common.Address) (domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[addr]
	if !ok {
		return domain.Asset{}, domain.ErrNotFound
	}
	return a, nil
}

// SetActive toggles the asset's active flag.
func (s *AssetStore) SetActive(ctx context.Context, addr common.Address, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[addr]
	if !ok {
		return domain.ErrNotFound
	}
	a.Active = active
	s.assets[addr] = a
	return nil
}

// List returns all registered assets in address order.
func (s *AssetStore) List(ctx context.Context) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Hex() < out[j].Address.Hex()
	})
	return out, nil
}

var _ domain.AssetStore = (*AssetStore)(nil)
