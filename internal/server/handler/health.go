package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// PauseReporter exposes the ledger pause switch.
type PauseReporter interface {
	Paused() bool
}

// StopReporter exposes the emergency-stop switch.
type StopReporter interface {
	Stopped() bool
}

// HealthHandler serves the health-check and status endpoints.
type HealthHandler struct {
	pause  PauseReporter
	stop   StopReporter
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given switches.
func NewHealthHandler(pause PauseReporter, stop StopReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pause: pause, stop: stop, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the pause and emergency-stop switches.
// GET /api/status
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"paused":         h.pause.Paused(),
		"emergency_stop": h.stop.Stopped(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
