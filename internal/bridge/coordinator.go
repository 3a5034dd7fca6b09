// Package bridge implements the cross-domain transfer coordinator: the state
// machine that moves custodied value to another execution domain through a
// relay-confirmed settlement.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
)

// CustodyLedger is the slice of the custody ledger the coordinator needs:
// an immediate debit at initiation and a compensating credit on revert.
type CustodyLedger interface {
	BridgeDebit(ctx context.Context, user, asset common.Address, amount *big.Int) error
	BridgeCredit(ctx context.Context, user, asset common.Address, amount *big.Int) error
}

// Coordinator drives cross-domain transfers. Initiation debits the user
// immediately; completion is reported later by the domain's relay and either
// finalizes the transfer or credits the full pre-fee amount back.
type Coordinator struct {
	domains   domain.DomainStore
	transfers domain.TransferStore
	ledger    CustodyLedger
	gate      domain.Gate
	acl       *domain.AccessList
	rec       *events.Recorder
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator with all required dependencies.
func NewCoordinator(
	domains domain.DomainStore,
	transfers domain.TransferStore,
	ledger CustodyLedger,
	gate domain.Gate,
	acl *domain.AccessList,
	rec *events.Recorder,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		domains:   domains,
		transfers: transfers,
		ledger:    ledger,
		gate:      gate,
		acl:       acl,
		rec:       rec,
		logger:    logger.With(slog.String("component", "bridge")),
	}
}

// AddDomain registers a supported execution domain. Admin only.
func (c *Coordinator) AddDomain(ctx context.Context, caller common.Address, d domain.SupportedDomain) (domain.SupportedDomain, error) {
	if err := c.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return domain.SupportedDomain{}, err
	}
	if err := validateDomain(d); err != nil {
		return domain.SupportedDomain{}, err
	}

	d.Active = true
	d.CreatedAt = time.Now().UTC()
	if err := c.domains.Create(ctx, d); err != nil {
		return domain.SupportedDomain{}, fmt.Errorf("bridge: add domain %d: %w", d.ID, err)
	}

	c.rec.Emit(ctx, domain.EventDomainAdded, map[string]any{
		"domain_id": d.ID,
		"name":      d.Name,
		"relay":     d.RelayAddress.Hex(),
		"fee_bps":   d.FeeBps,
	})
	return d, nil
}

// UpdateDomain replaces a registered domain's parameters. Admin only.
func (c *Coordinator) UpdateDomain(ctx context.Context, caller common.Address, d domain.SupportedDomain) error {
	if err := c.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	if err := validateDomain(d); err != nil {
		return err
	}

	if err := c.domains.Update(ctx, d); err != nil {
		return fmt.Errorf("bridge: update domain %d: %w", d.ID, err)
	}

	c.rec.Emit(ctx, domain.EventDomainUpdated, map[string]any{
		"domain_id": d.ID,
		"relay":     d.RelayAddress.Hex(),
		"fee_bps":   d.FeeBps,
		"active":    d.Active,
	})
	return nil
}

func validateDomain(d domain.SupportedDomain) error {
	switch {
	case d.ID == 0, d.Name == "":
		return domain.ErrInvalidInput
	case d.RelayAddress == (common.Address{}):
		return domain.ErrInvalidInput
	case d.FeeBps < 0 || d.FeeBps > domain.BpsDenominator:
		return domain.ErrInvalidInput
	}
	return nil
}

// Domain returns the registered domain with the given id.
func (c *Coordinator) Domain(ctx context.Context, id uint64) (domain.SupportedDomain, error) {
	return c.domains.Get(ctx, id)
}

// ListDomains returns the supported-domain registry.
func (c *Coordinator) ListDomains(ctx context.Context) ([]domain.SupportedDomain, error) {
	return c.domains.List(ctx)
}

// Initiate debits amount from the user and records a pending transfer to the
// target domain. The debit is immediate and irrevocable short of a relay
// revert; the recorded amount is net of the domain fee.
func (c *Coordinator) Initiate(ctx context.Context, user, asset common.Address, amount *big.Int, domainID uint64, target common.Address) (domain.Transfer, error) {
	if c.gate != nil {
		if err := c.gate.Check(ctx); err != nil {
			return domain.Transfer{}, err
		}
	}
	if user == (common.Address{}) || target == (common.Address{}) {
		return domain.Transfer{}, domain.ErrInvalidInput
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.Transfer{}, domain.ErrInvalidInput
	}

	d, err := c.domains.Get(ctx, domainID)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("bridge: initiate lookup domain %d: %w", domainID, err)
	}
	if !d.Active {
		return domain.Transfer{}, domain.ErrDomainInactive
	}

	nonce, err := c.transfers.NextNonce(ctx, user)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("bridge: initiate nonce: %w", err)
	}

	fee := new(big.Int).Div(
		new(big.Int).Mul(amount, big.NewInt(d.FeeBps)),
		big.NewInt(domain.BpsDenominator),
	)
	net := new(big.Int).Sub(amount, fee)

	t := domain.Transfer{
		ID:            domain.TransferID(user, asset, amount, nonce, domainID),
		User:          user,
		Asset:         asset,
		Amount:        net,
		GrossAmount:   new(big.Int).Set(amount),
		Fee:           fee,
		Nonce:         nonce,
		DomainID:      domainID,
		TargetAddress: target,
		State:         domain.TransferStatePending,
		InitiatedAt:   time.Now().UTC(),
	}

	if err := c.ledger.BridgeDebit(ctx, user, asset, amount); err != nil {
		return domain.Transfer{}, err
	}
	if err := c.transfers.Create(ctx, t); err != nil {
		// The debit already happened; credit it back so the failed
		// initiation leaves no state change behind.
		if cerr := c.ledger.BridgeCredit(ctx, user, asset, amount); cerr != nil {
			c.logger.ErrorContext(ctx, "compensating credit failed",
				slog.String("transfer_id", t.ID.Hex()),
				slog.String("error", cerr.Error()),
			)
		}
		return domain.Transfer{}, fmt.Errorf("bridge: record transfer %s: %w", t.ID.Hex(), err)
	}

	c.rec.Emit(ctx, domain.EventTransferInitiated, map[string]any{
		"transfer_id": t.ID.Hex(),
		"user":        user.Hex(),
		"asset":       asset.Hex(),
		"amount":      net.String(),
		"fee":         fee.String(),
		"domain_id":   domainID,
		"target":      target.Hex(),
	})
	return t, nil
}

// Complete finalizes or reverts a pending transfer. Only the relay of the
// transfer's target domain may call it. success=false is not an error: it is
// the terminal Reverted state, and the full pre-fee amount is credited back
// to the user (the fee accrues separately and is not clawed back).
func (c *Coordinator) Complete(ctx context.Context, caller common.Address, id common.Hash, success bool) (domain.Transfer, error) {
	t, err := c.transfers.Get(ctx, id)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("bridge: complete lookup %s: %w", id.Hex(), err)
	}

	d, err := c.domains.Get(ctx, t.DomainID)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("bridge: complete lookup domain %d: %w", t.DomainID, err)
	}
	if caller != d.RelayAddress {
		return domain.Transfer{}, domain.ErrUnauthorized
	}

	next, err := Transition(t.State, success)
	if err != nil {
		return domain.Transfer{}, err
	}

	now := time.Now().UTC()
	if err := c.transfers.SetState(ctx, id, next, now); err != nil {
		return domain.Transfer{}, err
	}
	t.State = next
	t.CompletedAt = &now

	if next == domain.TransferStateReverted {
		if err := c.ledger.BridgeCredit(ctx, t.User, t.Asset, t.GrossAmount); err != nil {
			// The transfer is already terminal; surface the credit failure
			// loudly, it means conservation is broken until repaired.
			c.logger.ErrorContext(ctx, "revert credit failed",
				slog.String("transfer_id", id.Hex()),
				slog.String("error", err.Error()),
			)
			return domain.Transfer{}, err
		}
		c.rec.Emit(ctx, domain.EventTransferReverted, map[string]any{
			"transfer_id": id.Hex(),
			"user":        t.User.Hex(),
			"asset":       t.Asset.Hex(),
			"refunded":    t.GrossAmount.String(),
		})
		return t, nil
	}

	c.rec.Emit(ctx, domain.EventTransferCompleted, map[string]any{
		"transfer_id": id.Hex(),
		"user":        t.User.Hex(),
		"domain_id":   t.DomainID,
		"amount":      t.Amount.String(),
	})
	return t, nil
}

// Transfer returns the transfer with the given id.
func (c *Coordinator) Transfer(ctx context.Context, id common.Hash) (domain.Transfer, error) {
	return c.transfers.Get(ctx, id)
}

// TransfersByUser returns the user's transfer history, newest first.
func (c *Coordinator) TransfersByUser(ctx context.Context, user common.Address, opts domain.ListOpts) ([]domain.Transfer, error) {
	return c.transfers.ListByUser(ctx, user, opts)
}
