package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// AdminService defines the pause controls the admin handler requires.
type AdminService interface {
	Pause(ctx context.Context, caller common.Address) error
	Unpause(ctx context.Context, caller common.Address) error
}

// AdminHandler serves the ledger pause switch and the audit log.
type AdminHandler struct {
	ledger AdminService
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and audit
// store. A nil audit store disables the audit endpoint.
func NewAdminHandler(ledger AdminService, audit domain.AuditStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{ledger: ledger, audit: audit, logger: logger}
}

// Pause halts deposits, withdrawals, and transfer initiation. Admin only.
// POST /api/custody/pause
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	if err := h.ledger.Pause(r.Context(), caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// Unpause resumes normal ledger operation. Admin only.
// POST /api/custody/unpause
func (h *AdminHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	if err := h.ledger.Unpause(r.Context(), caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unpaused"})
}

// ListAudit returns audit events, newest first.
// GET /api/audit?limit=50&offset=0
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotImplemented, "audit log not configured")
		return
	}

	events, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
