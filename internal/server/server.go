// Package server is the HTTP + WebSocket API surface of the custody service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/server/handler"
	"github.com/MeganTobias/chainvault/internal/server/middleware"
	"github.com/MeganTobias/chainvault/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Assets   *handler.AssetHandler
	Custody  *handler.CustodyHandler
	Risk     *handler.RiskHandler
	StopLoss *handler.StopLossHandler
	Prices   *handler.PriceHandler
	Bridge   *handler.BridgeHandler
	Admin    *handler.AdminHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered, wrapped in the
// middleware chain (rate limiting, auth, logging, CORS). A nil limiter
// disables rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and status (no auth required for health).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Health.Status)

	// Asset registry.
	mux.HandleFunc("GET /api/assets", handlers.Assets.ListAssets)
	mux.HandleFunc("POST /api/assets", handlers.Assets.AddAsset)
	mux.HandleFunc("GET /api/assets/{address}", handlers.Assets.GetAsset)
	mux.HandleFunc("PATCH /api/assets/{address}", handlers.Assets.SetAssetActive)

	// Custody ledger.
	mux.HandleFunc("POST /api/custody/deposit", handlers.Custody.Deposit)
	mux.HandleFunc("POST /api/custody/withdraw", handlers.Custody.Withdraw)
	mux.HandleFunc("GET /api/custody/balance", handlers.Custody.GetBalance)
	mux.HandleFunc("GET /api/custody/balances", handlers.Custody.ListBalances)
	mux.HandleFunc("GET /api/custody/total", handlers.Custody.GetTotal)
	mux.HandleFunc("POST /api/custody/pause", handlers.Admin.Pause)
	mux.HandleFunc("POST /api/custody/unpause", handlers.Admin.Unpause)

	// Risk engine.
	mux.HandleFunc("PUT /api/risk/profiles/{user}", handlers.Risk.SetProfile)
	mux.HandleFunc("GET /api/risk/profiles/{user}", handlers.Risk.GetProfile)
	mux.HandleFunc("PUT /api/risk/assets/{address}", handlers.Risk.UpdateAssetRisk)
	mux.HandleFunc("GET /api/risk/assets/{address}", handlers.Risk.GetAssetRisk)
	mux.HandleFunc("POST /api/risk/assess", handlers.Risk.AssessPosition)
	mux.HandleFunc("GET /api/risk/positions", handlers.Risk.GetPositionRisk)
	mux.HandleFunc("GET /api/risk/check", handlers.Risk.CheckThresholds)
	mux.HandleFunc("POST /api/risk/emergency-stop", handlers.Risk.EmergencyStop)
	mux.HandleFunc("DELETE /api/risk/emergency-stop", handlers.Risk.ClearEmergencyStop)

	// Stop-loss orders.
	mux.HandleFunc("POST /api/stoploss", handlers.StopLoss.Create)
	mux.HandleFunc("GET /api/stoploss", handlers.StopLoss.List)
	mux.HandleFunc("PUT /api/stoploss/{id}", handlers.StopLoss.Update)
	mux.HandleFunc("DELETE /api/stoploss/{id}", handlers.StopLoss.Cancel)

	// Price feed.
	mux.HandleFunc("GET /api/prices/{address}", handlers.Prices.GetPrice)
	mux.HandleFunc("PUT /api/prices/{address}/override", handlers.Prices.SetOverride)
	mux.HandleFunc("DELETE /api/prices/{address}/override", handlers.Prices.ClearOverride)

	// Cross-domain transfers.
	mux.HandleFunc("POST /api/bridge/domains", handlers.Bridge.AddDomain)
	mux.HandleFunc("GET /api/bridge/domains", handlers.Bridge.ListDomains)
	mux.HandleFunc("PUT /api/bridge/domains/{id}", handlers.Bridge.UpdateDomain)
	mux.HandleFunc("POST /api/bridge/transfers", handlers.Bridge.Initiate)
	mux.HandleFunc("GET /api/bridge/transfers", handlers.Bridge.ListTransfers)
	mux.HandleFunc("GET /api/bridge/transfers/{id}", handlers.Bridge.GetTransfer)
	mux.HandleFunc("POST /api/bridge/transfers/{id}/complete", handlers.Bridge.Complete)

	// Audit log.
	mux.HandleFunc("GET /api/audit", handlers.Admin.ListAudit)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
