package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Asset is a custodied token registered by an administrator. Assets are never
// deleted, only deactivated.
type Asset struct {
	Address   common.Address
	Symbol    string
	Decimals  uint8
	Active    bool
	CreatedAt time.Time
}

// Balance is the custodied amount of a single asset held for a single user,
// denominated in the asset's smallest unit. Amount is never negative.
type Balance struct {
	User      common.Address
	Asset     common.Address
	Amount    *big.Int
	UpdatedAt time.Time
}
