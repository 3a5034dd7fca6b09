package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func TestBalanceStoreConservation(t *testing.T) {
	ctx := context.Background()
	s := NewBalanceStore()

	require.NoError(t, s.Credit(ctx, alice, usdc, big.NewInt(700)))
	require.NoError(t, s.Credit(ctx, bob, usdc, big.NewInt(300)))
	require.NoError(t, s.Debit(ctx, alice, usdc, big.NewInt(200)))

	aliceBal, err := s.Get(ctx, alice, usdc)
	require.NoError(t, err)
	bobBal, err := s.Get(ctx, bob, usdc)
	require.NoError(t, err)
	total, err := s.TotalCustodied(ctx, usdc)
	require.NoError(t, err)

	require.Zero(t, total.Cmp(new(big.Int).Add(aliceBal, bobBal)))
	require.Equal(t, int64(800), total.Int64())
}

func TestBalanceStoreDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	s := NewBalanceStore()

	require.NoError(t, s.Credit(ctx, alice, usdc, big.NewInt(100)))
	require.ErrorIs(t, s.Debit(ctx, alice, usdc, big.NewInt(101)), domain.ErrInsufficientBalance)
	require.ErrorIs(t, s.Debit(ctx, bob, usdc, big.NewInt(1)), domain.ErrInsufficientBalance)

	// The failed debit mutated nothing.
	bal, err := s.Get(ctx, alice, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(100), bal.Int64())
	total, err := s.TotalCustodied(ctx, usdc)
	require.NoError(t, err)
	require.Equal(t, int64(100), total.Int64())
}

func TestBalanceStoreRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	s := NewBalanceStore()

	require.ErrorIs(t, s.Credit(ctx, alice, usdc, big.NewInt(0)), domain.ErrInvalidInput)
	require.ErrorIs(t, s.Credit(ctx, alice, usdc, nil), domain.ErrInvalidInput)
	require.ErrorIs(t, s.Debit(ctx, alice, usdc, big.NewInt(-1)), domain.ErrInvalidInput)
}

func TestTransferStoreSetStateOnce(t *testing.T) {
	ctx := context.Background()
	s := NewTransferStore()
	id := common.HexToHash("0xaa")

	tr := domain.Transfer{
		ID:          id,
		User:        alice,
		Asset:       usdc,
		Amount:      big.NewInt(990),
		GrossAmount: big.NewInt(1000),
		Fee:         big.NewInt(10),
		State:       domain.TransferStatePending,
		InitiatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Create(ctx, tr))
	require.ErrorIs(t, s.Create(ctx, tr), domain.ErrAlreadyExists)

	now := time.Now().UTC()
	require.NoError(t, s.SetState(ctx, id, domain.TransferStateCompleted, now))

	// Terminal states never transition again.
	err := s.SetState(ctx, id, domain.TransferStateReverted, now)
	require.ErrorIs(t, err, domain.ErrTransferCompleted)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStateCompleted, got.State)
	require.NotNil(t, got.CompletedAt)

	err = s.SetState(ctx, common.HexToHash("0xbb"), domain.TransferStateCompleted, now)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferStoreNonces(t *testing.T) {
	ctx := context.Background()
	s := NewTransferStore()

	n1, err := s.NextNonce(ctx, alice)
	require.NoError(t, err)
	n2, err := s.NextNonce(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, n1+1, n2)

	// Per-user sequences are independent.
	bn, err := s.NextNonce(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), bn)
}

func TestTransferStoreListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewTransferStore()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Create(ctx, domain.Transfer{
			ID:          common.BigToHash(big.NewInt(int64(i + 1))),
			User:        alice,
			Asset:       usdc,
			Amount:      big.NewInt(100),
			GrossAmount: big.NewInt(100),
			Fee:         big.NewInt(0),
			State:       domain.TransferStatePending,
			InitiatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	out, err := s.ListByUser(ctx, alice, domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.True(t, out[0].InitiatedAt.After(out[1].InitiatedAt))
}
