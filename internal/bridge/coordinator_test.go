package bridge

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/custody"
	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
	"github.com/MeganTobias/chainvault/internal/store/memory"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	relay = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	tgt   = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

const testDomainID = 7

type bridgeEnv struct {
	coord  *Coordinator
	ledger *custody.Ledger
}

func newTestBridge(t *testing.T) *bridgeEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acl := domain.NewAccessList()
	acl.Grant(domain.RoleAdmin, admin)
	rec := events.NewRecorder(memory.NewAuditStore(), logger)

	ledger := custody.NewLedger(memory.NewAssetStore(), memory.NewBalanceStore(), nil, acl, rec, logger)
	coord := NewCoordinator(memory.NewDomainStore(), memory.NewTransferStore(), ledger, nil, acl, rec, logger)

	_, err := ledger.AddAsset(ctx, admin, usdc, "USDC", 6)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(10000)))

	_, err = coord.AddDomain(ctx, admin, domain.SupportedDomain{
		ID:           testDomainID,
		Name:         "arbitrum",
		RelayAddress: relay,
		GasLimit:     500000,
		FeeBps:       100, // 1%
	})
	require.NoError(t, err)

	return &bridgeEnv{coord: coord, ledger: ledger}
}

func TestInitiateTransfer(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	tr, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)

	require.Equal(t, domain.TransferStatePending, tr.State)
	require.Equal(t, int64(1000), tr.GrossAmount.Int64())
	require.Equal(t, int64(10), tr.Fee.Int64())
	require.Equal(t, int64(990), tr.Amount.Int64())
	require.Equal(t, uint64(1), tr.Nonce)
	require.Equal(t, domain.TransferID(alice, usdc, big.NewInt(1000), 1, testDomainID), tr.ID)

	// The gross amount is debited up front.
	bal, err := env.ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(9000), bal.Int64())

	stored, err := env.coord.Transfer(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, tr.ID, stored.ID)

	// The nonce makes repeated identical transfers distinct.
	tr2, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)
	require.NotEqual(t, tr.ID, tr2.ID)
	require.Equal(t, uint64(2), tr2.Nonce)
}

func TestInitiateValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	_, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(0), testDomainID, tgt)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.coord.Initiate(ctx, alice, usdc, big.NewInt(100), testDomainID, common.Address{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.coord.Initiate(ctx, alice, usdc, big.NewInt(100), 99, tgt)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Insufficient balance fails the debit and records nothing.
	_, err = env.coord.Initiate(ctx, alice, usdc, big.NewInt(10001), testDomainID, tgt)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	bal, err := env.ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(10000), bal.Int64())
	transfers, err := env.coord.TransfersByUser(ctx, alice, domain.ListOpts{})
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestInitiateInactiveDomain(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	require.NoError(t, env.coord.UpdateDomain(ctx, admin, domain.SupportedDomain{
		ID:           testDomainID,
		Name:         "arbitrum",
		RelayAddress: relay,
		GasLimit:     500000,
		FeeBps:       100,
		Active:       false,
	}))

	_, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(100), testDomainID, tgt)
	require.ErrorIs(t, err, domain.ErrDomainInactive)
}

func TestCompleteSuccess(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	tr, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)

	done, err := env.coord.Complete(ctx, relay, tr.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStateCompleted, done.State)
	require.NotNil(t, done.CompletedAt)

	// Completion does not touch the balance; the debit stands.
	bal, err := env.ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(9000), bal.Int64())
}

func TestCompleteFailureRefundsGross(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	tr, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)

	done, err := env.coord.Complete(ctx, relay, tr.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStateReverted, done.State)

	// The full pre-fee amount comes back.
	bal, err := env.ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(10000), bal.Int64())
}

func TestCompleteAuthorization(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	tr, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)

	// Neither the user nor the admin may finalize, only the domain's relay.
	_, err = env.coord.Complete(ctx, alice, tr.ID, true)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.coord.Complete(ctx, admin, tr.ID, true)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	stored, err := env.coord.Transfer(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatePending, stored.State)
}

func TestCompleteTwice(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	tr, err := env.coord.Initiate(ctx, alice, usdc, big.NewInt(1000), testDomainID, tgt)
	require.NoError(t, err)

	_, err = env.coord.Complete(ctx, relay, tr.ID, true)
	require.NoError(t, err)

	// A second completion, success or failure, is rejected and no refund
	// is issued.
	_, err = env.coord.Complete(ctx, relay, tr.ID, true)
	require.ErrorIs(t, err, domain.ErrTransferCompleted)
	_, err = env.coord.Complete(ctx, relay, tr.ID, false)
	require.ErrorIs(t, err, domain.ErrTransferCompleted)

	bal, err := env.ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(9000), bal.Int64())
}

func TestCompleteUnknownTransfer(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	_, err := env.coord.Complete(ctx, relay, common.HexToHash("0xdead"), true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDomainRegistry(t *testing.T) {
	ctx := context.Background()
	env := newTestBridge(t)

	_, err := env.coord.AddDomain(ctx, alice, domain.SupportedDomain{
		ID: 8, Name: "base", RelayAddress: relay,
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.coord.AddDomain(ctx, admin, domain.SupportedDomain{
		ID: 8, Name: "", RelayAddress: relay,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.coord.AddDomain(ctx, admin, domain.SupportedDomain{
		ID: 8, Name: "base", RelayAddress: relay, FeeBps: 10001,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	d, err := env.coord.AddDomain(ctx, admin, domain.SupportedDomain{
		ID: 8, Name: "base", RelayAddress: relay, FeeBps: 50,
	})
	require.NoError(t, err)
	require.True(t, d.Active)

	ds, err := env.coord.ListDomains(ctx)
	require.NoError(t, err)
	require.Len(t, ds, 2)
}

func TestTransferIDDeterministic(t *testing.T) {
	a := domain.TransferID(alice, usdc, big.NewInt(1000), 1, testDomainID)
	b := domain.TransferID(alice, usdc, big.NewInt(1000), 1, testDomainID)
	require.Equal(t, a, b)

	require.NotEqual(t, a, domain.TransferID(alice, usdc, big.NewInt(1000), 2, testDomainID))
	require.NotEqual(t, a, domain.TransferID(alice, usdc, big.NewInt(1001), 1, testDomainID))
	require.NotEqual(t, a, domain.TransferID(alice, usdc, big.NewInt(1000), 1, testDomainID+1))
}
