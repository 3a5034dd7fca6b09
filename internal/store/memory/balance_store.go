package memory

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

type balanceKey struct {
	user  common.Address
	asset common.Address
}

// BalanceStore implements domain.BalanceStore in memory. Credit and Debit
// keep the per-asset custodied total in lockstep with the user balances under
// a single mutex, so the conservation invariant holds at every instant.
type BalanceStore struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
	totals   map[common.Address]*big.Int
	updated  map[balanceKey]time.Time
}

// NewBalanceStore creates an empty BalanceStore.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		balances: make(map[balanceKey]*big.Int),
		totals:   make(map[common.Address]*big.Int),
		updated:  make(map[balanceKey]time.Time),
	}
}

// Credit increases the user's balance and the asset total by amount.
func (s *BalanceStore) Credit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{user, asset}
	bal := s.balances[key]
	if bal == nil {
		bal = new(big.Int)
	}
	s.balances[key] = new(big.Int).Add(bal, amount)

	total := s.totals[asset]
	if total == nil {
		total = new(big.Int)
	}
	s.totals[asset] = new(big.Int).Add(total, amount)
	s.updated[key] = time.Now().UTC()
	return nil
}

// Debit decreases the user's balance and the asset total by amount, failing
// with ErrInsufficientBalance (and no mutation) when the balance is short.
func (s *BalanceStore) Debit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{user, asset}
	bal := s.balances[key]
	if bal == nil || bal.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	s.balances[key] = new(big.Int).Sub(bal, amount)
	s.totals[asset] = new(big.Int).Sub(s.totals[asset], amount)
	s.updated[key] = time.Now().UTC()
	return nil
}

// Get returns the user's balance for an asset; zero when no entry exists.
func (s *BalanceStore) Get(ctx context.Context, user, asset common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal := s.balances[balanceKey{user, asset}]
	if bal == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

// ListByUser returns all non-zero balances held for the user.
func (s *BalanceStore) ListByUser(ctx context.Context, user common.Address) ([]domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Balance
	for key, bal := range s.balances {
		if key.user != user || bal.Sign() == 0 {
			continue
		}
		out = append(out, domain.Balance{
			User:      key.user,
			Asset:     key.asset,
			Amount:    new(big.Int).Set(bal),
			UpdatedAt: s.updated[key],
		})
	}
	return out, nil
}

// TotalCustodied returns the asset's running custodied total.
func (s *BalanceStore) TotalCustodied(ctx context.Context, asset common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.totals[asset]
	if total == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(total), nil
}

var _ domain.BalanceStore = (*BalanceStore)(nil)
