package domain

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferState tracks the cross-domain transfer lifecycle. Pending is the
// only non-terminal state; Completed and Reverted are terminal and mutually
// exclusive.
type TransferState string

const (
	TransferStatePending   TransferState = "pending"
	TransferStateCompleted TransferState = "completed"
	TransferStateReverted  TransferState = "reverted"
)

// Terminal reports whether no further transitions are allowed from s.
func (s TransferState) Terminal() bool {
	return s == TransferStateCompleted || s == TransferStateReverted
}

// Transfer is a request to move custodied value to another execution domain.
// Amount is the post-fee amount delivered on the target domain; GrossAmount
// is the pre-fee amount debited from the user and refunded on revert.
type Transfer struct {
	ID            common.Hash
	User          common.Address
	Asset         common.Address
	Amount        *big.Int
	GrossAmount   *big.Int
	Fee           *big.Int
	Nonce         uint64
	DomainID      uint64
	TargetAddress common.Address
	State         TransferState
	InitiatedAt   time.Time
	CompletedAt   *time.Time
}

// SupportedDomain is an execution domain transfers may target. RelayAddress
// is the sole principal authorized to finalize transfers for the domain.
type SupportedDomain struct {
	ID           uint64
	Name         string
	RelayAddress common.Address
	GasLimit     uint64
	FeeBps       int64
	Active       bool
	CreatedAt    time.Time
}

// TransferID derives the deterministic identifier for a transfer. The nonce
// distinguishes repeated transfers with otherwise identical parameters.
func TransferID(user, asset common.Address, amount *big.Int, nonce, domainID uint64) common.Hash {
	var nonceBuf, domainBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	binary.BigEndian.PutUint64(domainBuf[:], domainID)

	return common.BytesToHash(crypto.Keccak256(
		user.Bytes(),
		asset.Bytes(),
		common.LeftPadBytes(amount.Bytes(), 32),
		nonceBuf[:],
		domainBuf[:],
	))
}
