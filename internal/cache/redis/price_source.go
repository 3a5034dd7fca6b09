package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// PriceSource implements domain.PriceSource using Redis hashes. Each asset's
// latest observation is stored at "price:{asset}" with fields "price" and
// "ts" (Unix nanosecond timestamp). An external feed ingester writes; the
// price feed service reads and applies staleness rules.
type PriceSource struct {
	rdb *redis.Client
}

// NewPriceSource creates a PriceSource backed by the given Client.
func NewPriceSource(c *Client) *PriceSource {
	return &PriceSource{rdb: c.Underlying()}
}

func priceKey(asset common.Address) string {
	return "price:" + asset.Hex()
}

// SetPrice stores the latest observed price and observation time for an asset.
func (ps *PriceSource) SetPrice(ctx context.Context, asset common.Address, price decimal.Decimal, ts time.Time) error {
	fields := map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := ps.rdb.HSet(ctx, priceKey(asset), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", asset.Hex(), err)
	}
	return nil
}

// Price retrieves the latest observation for an asset. It returns
// domain.ErrNotFound when no observation exists.
func (ps *PriceSource) Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error) {
	vals, err := ps.rdb.HGetAll(ctx, priceKey(asset)).Result()
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("redis: get price %s: %w", asset.Hex(), err)
	}
	if len(vals) == 0 {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("redis: parse price %s: %w", asset.Hex(), err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return decimal.Decimal{}, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", asset.Hex(), err)
	}

	return price, time.Unix(0, tsNano), nil
}

var _ domain.PriceSource = (*PriceSource)(nil)
