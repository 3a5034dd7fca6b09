package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AssetStore persists the asset registry.
type AssetStore interface {
	// Create registers a new asset. It returns ErrAlreadyExists when the
	// address is already registered.
	Create(ctx context.Context, a Asset) error
	Get(ctx context.Context, addr common.Address) (Asset, error)
	SetActive(ctx context.Context, addr common.Address, active bool) error
	List(ctx context.Context) ([]Asset, error)
}

// BalanceStore persists custody balances. Credit and Debit are atomic with
// respect to each other and keep the per-asset custodied total in sync with
// the sum of user balances.
type BalanceStore interface {
	Credit(ctx context.Context, user, asset common.Address, amount *big.Int) error
	// Debit returns ErrInsufficientBalance when the user's balance is below
	// amount; the balance is left untouched in that case.
	Debit(ctx context.Context, user, asset common.Address, amount *big.Int) error
	Get(ctx context.Context, user, asset common.Address) (*big.Int, error)
	ListByUser(ctx context.Context, user common.Address) ([]Balance, error)
	TotalCustodied(ctx context.Context, asset common.Address) (*big.Int, error)
}

// RiskProfileStore persists user risk profiles.
type RiskProfileStore interface {
	Put(ctx context.Context, p RiskProfile) error
	Get(ctx context.Context, user common.Address) (RiskProfile, error)
}

// AssetRiskStore persists assessor-supplied asset risk metrics.
type AssetRiskStore interface {
	Put(ctx context.Context, m AssetRiskMetric) error
	Get(ctx context.Context, asset common.Address) (AssetRiskMetric, error)
}

// PositionRiskStore persists computed position risk scores.
type PositionRiskStore interface {
	Put(ctx context.Context, r PositionRisk) error
	Get(ctx context.Context, user, asset common.Address) (PositionRisk, error)
}

// StopLossStore persists stop-loss orders.
type StopLossStore interface {
	Create(ctx context.Context, o StopLossOrder) error
	Update(ctx context.Context, o StopLossOrder) error
	Get(ctx context.Context, id string) (StopLossOrder, error)
	ListByUser(ctx context.Context, user common.Address) ([]StopLossOrder, error)
	ListActive(ctx context.Context) ([]StopLossOrder, error)
}

// TransferStore persists cross-domain transfers and per-user nonces.
type TransferStore interface {
	Create(ctx context.Context, t Transfer) error
	Get(ctx context.Context, id common.Hash) (Transfer, error)
	// SetState moves a pending transfer to a terminal state. It returns
	// ErrTransferCompleted when the transfer is already terminal, atomically
	// with the state read.
	SetState(ctx context.Context, id common.Hash, state TransferState, at time.Time) error
	ListByUser(ctx context.Context, user common.Address, opts ListOpts) ([]Transfer, error)
	// NextNonce increments and returns the user's transfer nonce.
	NextNonce(ctx context.Context, user common.Address) (uint64, error)
}

// DomainStore persists the supported-domain registry.
type DomainStore interface {
	Create(ctx context.Context, d SupportedDomain) error
	Update(ctx context.Context, d SupportedDomain) error
	Get(ctx context.Context, id uint64) (SupportedDomain, error)
	List(ctx context.Context) ([]SupportedDomain, error)
}

// AuditStore is the authoritative append-only event log.
type AuditStore interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)
	// ListBefore returns events recorded strictly before the cutoff, for
	// archival.
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
