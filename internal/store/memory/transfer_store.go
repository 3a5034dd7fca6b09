package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// TransferStore implements domain.TransferStore in memory.
type TransferStore struct {
	mu        sync.Mutex
	transfers map[common.Hash]domain.Transfer
	nonces    map[common.Address]uint64
}

// NewTransferStore creates an empty TransferStore.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		transfers: make(map[common.Hash]domain.Transfer),
		nonces:    make(map[common.Address]uint64),
	}
}

// Create records a new transfer, rejecting duplicate ids.
func (s *TransferStore) Create(ctx context.Context, t domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transfers[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.transfers[t.ID] = copyTransfer(t)
	return nil
}

// Get returns the transfer with the given id.
func (s *TransferStore) Get(ctx context.Context, id common.Hash) (domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return domain.Transfer{}, domain.ErrNotFound
	}
	return copyTransfer(t), nil
}

// SetState moves a pending transfer to a terminal state. The pending check
// and the write happen under one lock, so a second completion always observes
// the terminal state and fails.
func (s *TransferStore) SetState(ctx context.Context, id common.Hash, state domain.TransferState, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.State.Terminal() {
		return domain.ErrTransferCompleted
	}
	t.State = state
	t.CompletedAt = &at
	s.transfers[id] = t
	return nil
}

// ListByUser returns the user's transfers, newest first.
func (s *TransferStore) ListByUser(ctx context.Context, user common.Address, opts domain.ListOpts) ([]domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transfer
	for _, t := range s.transfers {
		if t.User == user {
			out = append(out, copyTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].InitiatedAt.After(out[j].InitiatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// NextNonce increments and returns the user's transfer nonce.
func (s *TransferStore) NextNonce(ctx context.Context, user common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[user]++
	return s.nonces[user], nil
}

func copyTransfer(t domain.Transfer) domain.Transfer {
	if t.Amount != nil {
		t.Amount = new(big.Int).Set(t.Amount)
	}
	if t.GrossAmount != nil {
		t.GrossAmount = new(big.Int).Set(t.GrossAmount)
	}
	if t.Fee != nil {
		t.Fee = new(big.Int).Set(t.Fee)
	}
	return t
}

var _ domain.TransferStore = (*TransferStore)(nil)
