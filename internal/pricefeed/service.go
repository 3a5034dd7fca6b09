// Package pricefeed wraps an external price source with the validity rules
// the core depends on: staleness rejection, non-positive rejection, and an
// administrative per-asset emergency override that bypasses the source.
package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
)

// DefaultMaxAge is the staleness cutoff applied when no limit is configured.
const DefaultMaxAge = 3600 * time.Second

// Reader is the narrow read interface the risk engine consumes.
type Reader interface {
	Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error)
}

// Service validates prices from a domain.PriceSource and manages emergency
// overrides.
type Service struct {
	src    domain.PriceSource
	maxAge time.Duration
	acl    *domain.AccessList
	rec    *events.Recorder
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	overrides map[common.Address]decimal.Decimal
}

// NewService creates a Service. maxAge <= 0 selects DefaultMaxAge.
func NewService(
	src domain.PriceSource,
	maxAge time.Duration,
	acl *domain.AccessList,
	rec *events.Recorder,
	logger *slog.Logger,
) *Service {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Service{
		src:       src,
		maxAge:    maxAge,
		acl:       acl,
		rec:       rec,
		logger:    logger.With(slog.String("component", "pricefeed")),
		now:       func() time.Time { return time.Now().UTC() },
		overrides: make(map[common.Address]decimal.Decimal),
	}
}

// Price returns a validated price for the asset. An emergency override, when
// set, takes precedence over the source and never goes stale. Source prices
// older than the staleness cutoff fail with ErrStalePrice; non-positive
// prices fail with ErrInvalidPrice.
func (s *Service) Price(ctx context.Context, asset common.Address) (decimal.Decimal, time.Time, error) {
	s.mu.RLock()
	ov, hasOverride := s.overrides[asset]
	s.mu.RUnlock()
	if hasOverride {
		return ov, s.now(), nil
	}

	price, ts, err := s.src.Price(ctx, asset)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("pricefeed: read %s: %w", asset.Hex(), err)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, time.Time{}, domain.ErrInvalidPrice
	}
	if s.now().Sub(ts) > s.maxAge {
		return decimal.Decimal{}, time.Time{}, domain.ErrStalePrice
	}
	return price, ts, nil
}

// SetOverride installs an emergency price for the asset. Admin only.
func (s *Service) SetOverride(ctx context.Context, caller, asset common.Address, price decimal.Decimal) error {
	if err := s.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}
	if !price.IsPositive() {
		return domain.ErrInvalidPrice
	}

	s.mu.Lock()
	s.overrides[asset] = price
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "emergency price override set",
		slog.String("asset", asset.Hex()),
		slog.String("price", price.String()),
	)
	s.rec.Emit(ctx, domain.EventPriceOverrideSet, map[string]any{
		"asset": asset.Hex(),
		"price": price.String(),
		"by":    caller.Hex(),
	})
	return nil
}

// ClearOverride removes the emergency price for the asset. Admin only.
func (s *Service) ClearOverride(ctx context.Context, caller, asset common.Address) error {
	if err := s.acl.Authorize(domain.RoleAdmin, caller); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.overrides, asset)
	s.mu.Unlock()

	s.rec.Emit(ctx, domain.EventPriceOverrideClear, map[string]any{
		"asset": asset.Hex(),
		"by":    caller.Hex(),
	})
	return nil
}

var _ Reader = (*Service)(nil)
