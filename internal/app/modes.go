package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeganTobias/chainvault/internal/bridge"
	"github.com/MeganTobias/chainvault/internal/custody"
	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/events"
	"github.com/MeganTobias/chainvault/internal/pricefeed"
	"github.com/MeganTobias/chainvault/internal/risk"
	"github.com/MeganTobias/chainvault/internal/server"
	"github.com/MeganTobias/chainvault/internal/server/handler"
	"github.com/MeganTobias/chainvault/internal/server/ws"
)

// coreServices bundles the service layer built on top of the wired
// dependencies. All modes share the same construction.
type coreServices struct {
	ledger      *custody.Ledger
	engine      *risk.Engine
	coordinator *bridge.Coordinator
	prices      *pricefeed.Service
	monitor     *risk.Monitor
}

// buildCore constructs the service layer: access control, event recording,
// price validation, the custody ledger, the risk engine, and the transfer
// coordinator. The engine doubles as the operational gate for the ledger and
// the coordinator.
func (a *App) buildCore(deps *Dependencies) *coreServices {
	logger := a.logger

	acl := domain.NewAccessList()
	for _, addr := range a.cfg.AdminAddresses() {
		acl.Grant(domain.RoleAdmin, addr)
	}
	for _, addr := range a.cfg.AssessorAddresses() {
		acl.Grant(domain.RoleRiskAssessor, addr)
	}

	rec := events.NewRecorder(deps.AuditStore, logger)
	rec.AddSink(events.NewStreamSink(deps.EventStream))
	if deps.HasSenders {
		rec.AddSink(events.NewAlertSink(deps.Notifier))
	}

	prices := pricefeed.NewService(deps.PriceSource, a.cfg.PriceFeed.MaxAge.Duration, acl, rec, logger)

	engine := risk.NewEngine(
		deps.RiskProfileStore,
		deps.AssetRiskStore,
		deps.PositionRiskStore,
		deps.StopLossStore,
		deps.BalanceStore,
		prices,
		acl,
		rec,
		logger,
	)

	ledger := custody.NewLedger(deps.AssetStore, deps.BalanceStore, engine, acl, rec, logger)

	coordinator := bridge.NewCoordinator(
		deps.DomainStore,
		deps.TransferStore,
		ledger,
		engine,
		acl,
		rec,
		logger,
	)

	monitor := risk.NewMonitor(engine, deps.LockManager, a.cfg.Risk.MonitorInterval.Duration, logger)

	return &coreServices{
		ledger:      ledger,
		engine:      engine,
		coordinator: coordinator,
		prices:      prices,
		monitor:     monitor,
	}
}

// ServeMode runs the HTTP and WebSocket API only. Stop-loss monitoring and
// audit archival are expected to run in a separate monitor-mode process.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	core := a.buildCore(deps)
	a.startHTTPServer(ctx, g, deps, core)
	return g.Wait()
}

// MonitorMode runs the background workers without the API: the stop-loss
// price monitor and, when enabled, the periodic audit archiver.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	core := a.buildCore(deps)

	g.Go(func() error {
		return core.monitor.Run(ctx)
	})
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// FullMode runs everything in one process: API server, stop-loss monitor,
// and audit archival.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	core := a.buildCore(deps)

	g.Go(func() error {
		return core.monitor.Run(ctx)
	})
	a.startArchiveLoop(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, core)
	}

	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. The server shuts down gracefully on context cancellation.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, core *coreServices) {
	hub := ws.NewHub(deps.EventStream, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(core.ledger, core.engine, a.logger),
		Assets:   handler.NewAssetHandler(core.ledger, a.logger),
		Custody:  handler.NewCustodyHandler(core.ledger, a.logger),
		Risk:     handler.NewRiskHandler(core.engine, a.logger),
		StopLoss: handler.NewStopLossHandler(core.engine, a.logger),
		Prices:   handler.NewPriceHandler(core.prices, a.logger),
		Bridge:   handler.NewBridgeHandler(core.coordinator, a.logger),
		Admin:    handler.NewAdminHandler(core.ledger, deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds the periodic audit archive goroutine when archival is
// enabled. Each pass uploads events older than the retention window to object
// storage and prunes them from the audit store.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				n, err := deps.Archiver.ArchiveEvents(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "audit archive pass failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if n > 0 {
					a.logger.InfoContext(ctx, "audit archive pass complete",
						slog.Int64("events", n),
						slog.Time("cutoff", cutoff),
					)
				}
			}
		}
	})
}
