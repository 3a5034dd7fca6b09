// Package crypto verifies relay completion signatures. A relay proves its
// identity by signing the completion digest with the secp256k1 key behind its
// registered relay address; the HTTP layer recovers the signer and hands the
// address to the coordinator's authorization check.
package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// CompletionDigest is the 32-byte message a relay signs to complete a
// transfer: keccak256(transferID || successByte).
func CompletionDigest(id common.Hash, success bool) []byte {
	b := byte(0)
	if success {
		b = 1
	}
	return ethcrypto.Keccak256(id.Bytes(), []byte{b})
}

// RecoverRelay recovers the signer address from a hex-encoded 65-byte
// signature over the completion digest. It accepts both 0/1 and the
// Ethereum-conventional 27/28 recovery ids.
func RecoverRelay(id common.Hash, success bool, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: decode relay signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, domain.ErrInvalidInput
	}
	if sig[64] >= 27 {
		sig = append(append([]byte{}, sig[:64]...), sig[64]-27)
	}

	pub, err := ethcrypto.SigToPub(CompletionDigest(id, success), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover relay signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
