package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceSource supplies the latest observed price and its observation time
// for an asset. Staleness and validity checks are the caller's concern.
type PriceSource interface {
	Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error)
	SetPrice(ctx context.Context, asset common.Address, price decimal.Decimal, ts time.Time) error
}

// EventStream publishes events to streaming consumers and retains them in an
// ordered, trimmed stream for replay.
type EventStream interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Append(ctx context.Context, payload []byte) error
}

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion. Acquire returns
// ErrLockHeld when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
