package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// RiskProfileStore implements domain.RiskProfileStore in memory.
type RiskProfileStore struct {
	mu       sync.RWMutex
	profiles map[common.Address]domain.RiskProfile
}

// NewRiskProfileStore creates an empty RiskProfileStore.
func NewRiskProfileStore() *RiskProfileStore {
	return &RiskProfileStore{profiles: make(map[common.Address]domain.RiskProfile)}
}

// Put creates or overwrites the user's profile.
func (s *RiskProfileStore) Put(ctx context.Context, p domain.RiskProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.User] = p
	return nil
}

// Get returns the user's profile.
func (s *RiskProfileStore) Get(ctx context.Context, user common.Address) (domain.RiskProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[user]
	if !ok {
		return domain.RiskProfile{}, domain.ErrNotFound
	}
	return p, nil
}

// AssetRiskStore implements domain.AssetRiskStore in memory.
type AssetRiskStore struct {
	mu      sync.RWMutex
	metrics map[common.Address]domain.AssetRiskMetric
}

// NewAssetRiskStore creates an empty AssetRiskStore.
func NewAssetRiskStore() *AssetRiskStore {
	return &AssetRiskStore{metrics: make(map[common.Address]domain.AssetRiskMetric)}
}

// Put creates or overwrites the asset's risk metric.
func (s *AssetRiskStore) Put(ctx context.Context, m domain.AssetRiskMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[m.Asset] = m
	return nil
}

// Get returns the asset's risk metric.
func (s *AssetRiskStore) Get(ctx context.Context, asset common.Address) (domain.AssetRiskMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[asset]
	if !ok {
		return domain.AssetRiskMetric{}, domain.ErrNotFound
	}
	return m, nil
}

type positionKey struct {
	user  common.Address
	asset common.Address
}

// PositionRiskStore implements domain.PositionRiskStore in memory.
type PositionRiskStore struct {
	mu        sync.RWMutex
	positions map[positionKey]domain.PositionRisk
}

// NewPositionRiskStore creates an empty PositionRiskStore.
func NewPositionRiskStore() *PositionRiskStore {
	return &PositionRiskStore{positions: make(map[positionKey]domain.PositionRisk)}
}

// Put stores the latest computed position risk.
func (s *PositionRiskStore) Put(ctx context.Context, r domain.PositionRisk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Amount != nil {
		r.Amount = new(big.Int).Set(r.Amount)
	}
	s.positions[positionKey{r.User, r.Asset}] = r
	return nil
}

// Get returns the stored position risk for (user, asset).
func (s *PositionRiskStore) Get(ctx context.Context, user, asset common.Address) (domain.PositionRisk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.positions[positionKey{user, asset}]
	if !ok {
		return domain.PositionRisk{}, domain.ErrNotFound
	}
	if r.Amount != nil {
		r.Amount = new(big.Int).Set(r.Amount)
	}
	return r, nil
}

var (
	_ domain.RiskProfileStore  = (*RiskProfileStore)(nil)
	_ domain.AssetRiskStore    = (*AssetRiskStore)(nil)
	_ domain.PositionRiskStore = (*PositionRiskStore)(nil)
)
