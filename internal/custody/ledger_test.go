package custody

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
	"github.com/MeganTobias/chainvault/internal/store/memory"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth  = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

type stubGate struct {
	err error
}

func (g *stubGate) Check(ctx context.Context) error { return g.err }

func newTestLedger(t *testing.T, gate domain.Gate) (*Ledger, *memory.BalanceStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acl := domain.NewAccessList()
	acl.Grant(domain.RoleAdmin, admin)
	rec := events.NewRecorder(memory.NewAuditStore(), logger)
	balances := memory.NewBalanceStore()
	return NewLedger(memory.NewAssetStore(), balances, gate, acl, rec, logger), balances
}

func registerAsset(t *testing.T, l *Ledger, addr common.Address, symbol string) {
	t.Helper()
	_, err := l.AddAsset(context.Background(), admin, addr, symbol, 18)
	require.NoError(t, err)
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)
	registerAsset(t, ledger, usdc, "USDC")

	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(1000)))

	bal, err := ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(1000), bal.Int64())

	require.NoError(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(400)))

	bal, err = ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(600), bal.Int64())

	err = ledger.Withdraw(ctx, alice, usdc, big.NewInt(601))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Failed withdrawal leaves the balance untouched.
	bal, err = ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(600), bal.Int64())
}

func TestTotalMatchesSumOfBalances(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)
	registerAsset(t, ledger, usdc, "USDC")

	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(700)))
	require.NoError(t, ledger.Deposit(ctx, bob, usdc, big.NewInt(300)))
	require.NoError(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(150)))

	aliceBal, err := ledger.Balance(ctx, alice, usdc)
	require.NoError(t, err)
	bobBal, err := ledger.Balance(ctx, bob, usdc)
	require.NoError(t, err)
	total, err := ledger.TotalCustodied(ctx, usdc)
	require.NoError(t, err)

	sum := new(big.Int).Add(aliceBal, bobBal)
	require.Zero(t, total.Cmp(sum))
	require.Equal(t, int64(850), total.Int64())
}

func TestDepositValidation(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)
	registerAsset(t, ledger, usdc, "USDC")

	require.ErrorIs(t, ledger.Deposit(ctx, common.Address{}, usdc, big.NewInt(1)), domain.ErrInvalidInput)
	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(0)), domain.ErrInvalidInput)
	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(-5)), domain.ErrInvalidInput)
	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, nil), domain.ErrInvalidInput)

	// Unregistered asset.
	require.ErrorIs(t, ledger.Deposit(ctx, alice, weth, big.NewInt(1)), domain.ErrNotFound)
}

func TestDepositInactiveAsset(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)
	registerAsset(t, ledger, usdc, "USDC")

	require.NoError(t, ledger.SetAssetActive(ctx, admin, usdc, false))
	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(100)), domain.ErrAssetInactive)

	require.NoError(t, ledger.SetAssetActive(ctx, admin, usdc, true))
	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(100)))
}

func TestAddAssetAuthorization(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)

	_, err := ledger.AddAsset(ctx, alice, usdc, "USDC", 6)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = ledger.AddAsset(ctx, admin, usdc, "USDC", 6)
	require.NoError(t, err)

	_, err = ledger.AddAsset(ctx, admin, usdc, "USDC", 6)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPauseBlocksMutations(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t, nil)
	registerAsset(t, ledger, usdc, "USDC")
	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(500)))

	require.ErrorIs(t, ledger.Pause(ctx, alice), domain.ErrUnauthorized)
	require.NoError(t, ledger.Pause(ctx, admin))
	require.True(t, ledger.Paused())

	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(1)), domain.ErrPaused)
	require.ErrorIs(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(1)), domain.ErrPaused)
	require.ErrorIs(t, ledger.BridgeDebit(ctx, alice, usdc, big.NewInt(1)), domain.ErrPaused)

	// Revert credits bypass the pause switch so refunds are never stranded.
	require.NoError(t, ledger.BridgeCredit(ctx, alice, usdc, big.NewInt(50)))

	require.NoError(t, ledger.Unpause(ctx, admin))
	require.False(t, ledger.Paused())
	require.NoError(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(1)))
}

func TestGateBlocksMutations(t *testing.T) {
	ctx := context.Background()
	gate := &stubGate{}
	ledger, _ := newTestLedger(t, gate)
	registerAsset(t, ledger, usdc, "USDC")
	require.NoError(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(500)))

	gate.err = domain.ErrEmergencyStop
	require.ErrorIs(t, ledger.Deposit(ctx, alice, usdc, big.NewInt(1)), domain.ErrEmergencyStop)
	require.ErrorIs(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(1)), domain.ErrEmergencyStop)

	// Revert credits bypass the gate as well.
	require.NoError(t, ledger.BridgeCredit(ctx, alice, usdc, big.NewInt(50)))

	gate.err = nil
	require.NoError(t, ledger.Withdraw(ctx, alice, usdc, big.NewInt(1)))
}
