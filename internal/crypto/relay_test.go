package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
)

func TestRecoverRelay(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	relay := ethcrypto.PubkeyToAddress(key.PublicKey)
	id := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	sig, err := ethcrypto.Sign(CompletionDigest(id, true), key)
	require.NoError(t, err)

	got, err := RecoverRelay(id, true, hex.EncodeToString(sig))
	require.NoError(t, err)
	require.Equal(t, relay, got)

	// 0x prefix is accepted.
	got, err = RecoverRelay(id, true, "0x"+hex.EncodeToString(sig))
	require.NoError(t, err)
	require.Equal(t, relay, got)

	// Ethereum-conventional 27/28 recovery id is accepted too.
	adjusted := append(append([]byte{}, sig[:64]...), sig[64]+27)
	got, err = RecoverRelay(id, true, hex.EncodeToString(adjusted))
	require.NoError(t, err)
	require.Equal(t, relay, got)
}

func TestRecoverRelayDigestBinding(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	relay := ethcrypto.PubkeyToAddress(key.PublicKey)
	id := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")

	sig, err := ethcrypto.Sign(CompletionDigest(id, true), key)
	require.NoError(t, err)

	// A signature over success=true does not authorize success=false: the
	// recovered address differs from the relay.
	got, err := RecoverRelay(id, false, hex.EncodeToString(sig))
	if err == nil {
		require.NotEqual(t, relay, got)
	}

	// Nor does it carry over to a different transfer id.
	other := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333")
	got, err = RecoverRelay(other, true, hex.EncodeToString(sig))
	if err == nil {
		require.NotEqual(t, relay, got)
	}
}

func TestRecoverRelayInvalidSignature(t *testing.T) {
	id := common.HexToHash("0x4444444444444444444444444444444444444444444444444444444444444444")

	_, err := RecoverRelay(id, true, "zz")
	require.Error(t, err)

	_, err = RecoverRelay(id, true, "deadbeef")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompletionDigest(t *testing.T) {
	id := common.HexToHash("0x5555555555555555555555555555555555555555555555555555555555555555")

	require.Equal(t, CompletionDigest(id, true), CompletionDigest(id, true))
	require.NotEqual(t, CompletionDigest(id, true), CompletionDigest(id, false))
	require.Len(t, CompletionDigest(id, true), 32)
}
