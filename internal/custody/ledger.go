// Package custody implements the custody ledger: authoritative per-user,
// per-asset balance accounting. Balances change only through Deposit,
// Withdraw, and the transfer coordinator's debit/credit path.
package custody

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
)

// Ledger tracks custodied balances. Mutations check the pause switch and the
// risk-engine gate before touching the balance store, so a failed check never
// leaves partial state behind.
type Ledger struct {
	assets   domain.AssetStore
	balances domain.BalanceStore
	gate     domain.Gate
	acl      *domain.AccessList
	rec      *events.Recorder
	logger   *slog.Logger

	mu     sync.RWMutex
	paused bool
}

// NewLedger creates a Ledger with all required dependencies.
func NewLedger(
	assets domain.AssetStore,
	balances domain.BalanceStore,
	gate domain.Gate,
	acl *domain.AccessList,
	rec *events.Recorder,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		assets:   assets,
		balances: balances,
		gate:     gate,
		acl:      acl,
		rec:      rec,
		logger:   logger.With(slog.String("component", "custody")),
	}
}

// checkOperational fails when the ledger is paused or the emergency stop is
// active.
func (l *Ledger) checkOperational(ctx context.Context) error {
	l.mu.RLock()
	paused := l.paused
	l.mu.RUnlock()
	if paused {
		return domain.ErrPaused
	}
	if l.gate != nil {
		if err := l.gate.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Deposit credits amount of asset to the user. The external value hand-off
// into custody is assumed to have happened atomically with this call.
func (l *Ledger) Deposit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if err := l.checkOperational(ctx); err != nil {
		return err
	}
	if user == (common.Address{}) || amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidInput
	}

	a, err := l.assets.Get(ctx, asset)
	if err != nil {
		return fmt.Errorf("custody: deposit lookup asset %s: %w", asset.Hex(), err)
	}
	if !a.Active {
		return domain.ErrAssetInactive
	}

	if err := l.balances.Credit(ctx, user, asset, amount); err != nil {
		return fmt.Errorf("custody: deposit credit: %w", err)
	}

	l.rec.Emit(ctx, domain.EventDeposit, map[string]any{
		"user":   user.Hex(),
		"asset":  asset.Hex(),
		"amount": amount.String(),
	})
	return nil
}

// Withdraw debits amount of asset from the user, failing with
// ErrInsufficientBalance when the balance is short.
func (l *Ledger) Withdraw(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if err := l.checkOperational(ctx); err != nil {
		return err
	}
	if user == (common.Address{}) || amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidInput
	}

	if err := l.balances.Debit(ctx, user, asset, amount); err != nil {
		return fmt.Errorf("custody: withdraw debit: %w", err)
	}

	l.rec.Emit(ctx, domain.EventWithdrawal, map[string]any{
		"user":   user.Hex(),
		"asset":  asset.Hex(),
		"amount": amount.String(),
	})
	return nil
}

// Balance returns the user's balance for one asset.
func (l *Ledger) Balance(ctx context.Context, user, asset common.Address) (*big.Int, error) {
	return l.balances.Get(ctx, user, asset)
}

// BalancesByUser returns all non-zero balances held for the user.
func (l *Ledger) BalancesByUser(ctx context.Context, user common.Address) ([]domain.Balance, error) {
	return l.balances.ListByUser(ctx, user)
}

// TotalCustodied returns the total custodied amount of one asset across all
// users.
func (l *Ledger) TotalCustodied(ctx context.Context, asset common.Address) (*big.Int, error) {
	return l.balances.TotalCustodied(ctx, asset)
}

// BridgeDebit removes amount from the user's spendable balance on behalf of
// the transfer coordinator. The debit is immediate, not optimistic.
func (l *Ledger) BridgeDebit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if err := l.checkOperational(ctx); err != nil {
		return err
	}
	if err := l.balances.Debit(ctx, user, asset, amount); err != nil {
		return fmt.Errorf("custody: bridge debit: %w", err)
	}
	return nil
}

// BridgeCredit returns funds debited for a transfer that the relay reported
// as failed. It bypasses the pause and emergency switches: a revert credit
// repairs conservation and must not strand funds behind an operator switch.
func (l *Ledger) BridgeCredit(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if err := l.balances.Credit(ctx, user, asset, amount); err != nil {
		return fmt.Errorf("custody: bridge credit: %w", err)
	}
	return nil
}

// AddAsset registers a new custodiable asset. Admin only.
func (l *Ledger) AddAsset(ctx context.Context, caller common.Address, asset common.Address, symbol string, decimals uint8) (domain.Asset, error) {
	if err := l.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return domain.Asset{}, err
	}
	if asset == (common.Address{}) || symbol == "" {
		return domain.Asset{}, domain.ErrInvalidInput
	}

	a := domain.Asset{
		Address:   asset,
		Symbol:    symbol,
		Decimals:  decimals,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.assets.Create(ctx, a); err != nil {
		return domain.Asset{}, fmt.Errorf("custody: add asset %s: %w", asset.Hex(), err)
	}

	l.rec.Emit(ctx, domain.EventAssetAdded, map[string]any{
		"asset":    asset.Hex(),
		"symbol":   symbol,
		"decimals": decimals,
	})
	return a, nil
}

// SetAssetActive activates or deactivates an asset. Assets are never deleted.
// Admin only.
func (l *Ledger) SetAssetActive(ctx context.Context, caller, asset common.Address, active bool) error {
	if err := l.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	if err := l.assets.SetActive(ctx, asset, active); err != nil {
		return fmt.Errorf("custody: set asset active %s: %w", asset.Hex(), err)
	}

	l.rec.Emit(ctx, domain.EventAssetStatus, map[string]any{
		"asset":  asset.Hex(),
		"active": active,
	})
	return nil
}

// Asset returns the registered asset at addr.
func (l *Ledger) Asset(ctx context.Context, addr common.Address) (domain.Asset, error) {
	return l.assets.Get(ctx, addr)
}

// ListAssets returns the full asset registry.
func (l *Ledger) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return l.assets.List(ctx)
}

// Pause blocks all balance mutations except bridge revert credits. Admin only.
func (l *Ledger) Pause(ctx context.Context, caller common.Address) error {
	if err := l.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()

	l.logger.WarnContext(ctx, "ledger paused", slog.String("by", caller.Hex()))
	l.rec.Emit(ctx, domain.EventLedgerPaused, map[string]any{"by": caller.Hex()})
	return nil
}

// Unpause re-enables balance mutations. Admin only.
func (l *Ledger) Unpause(ctx context.Context, caller common.Address) error {
	if err := l.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	l.mu.Lock()
	l.paused = false
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "ledger unpaused", slog.String("by", caller.Hex()))
	l.rec.Emit(ctx, domain.EventLedgerUnpaused, map[string]any{"by": caller.Hex()})
	return nil
}

// Paused reports the pause switch state.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}
