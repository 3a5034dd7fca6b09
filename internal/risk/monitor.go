package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// Monitor periodically scans active stop-loss orders against current prices
// and triggers those whose stop price has been crossed. A distributed lock
// keeps the scan single-flight across replicas.
type Monitor struct {
	engine   *Engine
	locks    domain.LockManager
	interval time.Duration
	logger   *slog.Logger
}

const monitorLockKey = "stoploss-monitor"

// NewMonitor creates a Monitor scanning at the given interval. interval <= 0
// selects one minute.
func NewMonitor(engine *Engine, locks domain.LockManager, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		engine:   engine,
		locks:    locks,
		interval: interval,
		logger:   logger.With(slog.String("component", "stoploss_monitor")),
	}
}

// Run blocks, scanning until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

func (m *Monitor) scan(ctx context.Context) {
	if m.locks != nil {
		unlock, err := m.locks.Acquire(ctx, monitorLockKey, m.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				m.logger.WarnContext(ctx, "lock acquire failed", slog.String("error", err.Error()))
			}
			return
		}
		defer unlock()
	}

	triggered, err := m.engine.CheckStopLossTriggers(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
		return
	}
	if triggered > 0 {
		m.logger.InfoContext(ctx, "stop-loss orders triggered", slog.Int("count", triggered))
	}
}

// CheckStopLossTriggers evaluates every active order once and triggers those
// whose asset price is at or below the stop price. It returns the number of
// orders triggered. Orders whose price cannot be read are left untouched.
func (e *Engine) CheckStopLossTriggers(ctx context.Context) (int, error) {
	orders, err := e.stops.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	triggered := 0
	for _, o := range orders {
		price, _, err := e.prices.Price(ctx, o.Asset)
		if err != nil {
			e.logger.DebugContext(ctx, "stop-loss price unavailable",
				slog.String("asset", o.Asset.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if price.GreaterThan(o.StopPrice) {
			continue
		}

		now := time.Now().UTC()
		o.Active = false
		o.TriggeredAt = &now
		o.UpdatedAt = now
		if err := e.stops.Update(ctx, o); err != nil {
			e.logger.ErrorContext(ctx, "stop-loss trigger update failed",
				slog.String("id", o.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		triggered++

		e.rec.Emit(ctx, domain.EventStopLossTriggered, map[string]any{
			"id":         o.ID,
			"user":       o.User.Hex(),
			"asset":      o.Asset.Hex(),
			"stop_price": o.StopPrice.String(),
			"price":      price.String(),
		})
	}
	return triggered, nil
}
