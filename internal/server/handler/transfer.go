package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/crypto"
	"github.com/MeganTobias/chainvault/internal/domain"
)

// BridgeService defines the coordinator operations the bridge handler requires.
type BridgeService interface {
	AddDomain(ctx context.Context, caller common.Address, d domain.SupportedDomain) (domain.SupportedDomain, error)
	UpdateDomain(ctx context.Context, caller common.Address, d domain.SupportedDomain) error
	Domain(ctx context.Context, id uint64) (domain.SupportedDomain, error)
	ListDomains(ctx context.Context) ([]domain.SupportedDomain, error)
	Initiate(ctx context.Context, user, asset common.Address, amount *big.Int, domainID uint64, target common.Address) (domain.Transfer, error)
	Complete(ctx context.Context, caller common.Address, id common.Hash, success bool) (domain.Transfer, error)
	Transfer(ctx context.Context, id common.Hash) (domain.Transfer, error)
	TransfersByUser(ctx context.Context, user common.Address, opts domain.ListOpts) ([]domain.Transfer, error)
}

// BridgeHandler serves cross-domain transfer endpoints.
type BridgeHandler struct {
	bridge BridgeService
	logger *slog.Logger
}

// NewBridgeHandler creates a BridgeHandler with the given service.
func NewBridgeHandler(bridge BridgeService, logger *slog.Logger) *BridgeHandler {
	return &BridgeHandler{bridge: bridge, logger: logger}
}

type domainRequest struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	RelayAddress string `json:"relay_address"`
	GasLimit     uint64 `json:"gas_limit"`
	FeeBps       int64  `json:"fee_bps"`
	Active       bool   `json:"active"`
}

type domainView struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	RelayAddress string    `json:"relay_address"`
	GasLimit     uint64    `json:"gas_limit"`
	FeeBps       int64     `json:"fee_bps"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDomainView(d domain.SupportedDomain) domainView {
	return domainView{
		ID:           d.ID,
		Name:         d.Name,
		RelayAddress: d.RelayAddress.Hex(),
		GasLimit:     d.GasLimit,
		FeeBps:       d.FeeBps,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
	}
}

type transferView struct {
	ID            string     `json:"id"`
	User          string     `json:"user"`
	Asset         string     `json:"asset"`
	Amount        string     `json:"amount"`
	GrossAmount   string     `json:"gross_amount"`
	Fee           string     `json:"fee"`
	Nonce         uint64     `json:"nonce"`
	DomainID      uint64     `json:"domain_id"`
	TargetAddress string     `json:"target_address"`
	State         string     `json:"state"`
	InitiatedAt   time.Time  `json:"initiated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toTransferView(t domain.Transfer) transferView {
	return transferView{
		ID:            t.ID.Hex(),
		User:          t.User.Hex(),
		Asset:         t.Asset.Hex(),
		Amount:        bigStr(t.Amount),
		GrossAmount:   bigStr(t.GrossAmount),
		Fee:           bigStr(t.Fee),
		Nonce:         t.Nonce,
		DomainID:      t.DomainID,
		TargetAddress: t.TargetAddress.Hex(),
		State:         string(t.State),
		InitiatedAt:   t.InitiatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

// AddDomain registers a new target domain. Admin only.
// POST /api/bridge/domains
func (h *BridgeHandler) AddDomain(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	relay, err := parseAddress(req.RelayAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relay address")
		return
	}

	d, err := h.bridge.AddDomain(r.Context(), caller, domain.SupportedDomain{
		ID:           req.ID,
		Name:         req.Name,
		RelayAddress: relay,
		GasLimit:     req.GasLimit,
		FeeBps:       req.FeeBps,
		Active:       true,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDomainView(d))
}

// UpdateDomain changes a registered domain's parameters. Admin only.
// PUT /api/bridge/domains/{id}
func (h *BridgeHandler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	relay, err := parseAddress(req.RelayAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relay address")
		return
	}

	err = h.bridge.UpdateDomain(r.Context(), caller, domain.SupportedDomain{
		ID:           id,
		Name:         req.Name,
		RelayAddress: relay,
		GasLimit:     req.GasLimit,
		FeeBps:       req.FeeBps,
		Active:       req.Active,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "id": id})
}

// ListDomains returns all registered target domains.
// GET /api/bridge/domains
func (h *BridgeHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.bridge.ListDomains(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]domainView, 0, len(domains))
	for _, d := range domains {
		views = append(views, toDomainView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": views})
}

// Initiate starts a cross-domain transfer, debiting the user's custody.
// POST /api/bridge/transfers
func (h *BridgeHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     string `json:"user"`
		Asset    string `json:"asset"`
		Amount   string `json:"amount"`
		DomainID uint64 `json:"domain_id"`
		Target   string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "positive amount required")
		return
	}
	target, err := parseAddress(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target address")
		return
	}

	t, err := h.bridge.Initiate(r.Context(), user, asset, amount, req.DomainID, target)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferView(t))
}

// Complete finalizes a pending transfer. The relay proves its identity by
// signing keccak256(transferID || successByte); the recovered signer must
// match the domain's registered relay address.
// POST /api/bridge/transfers/{id}/complete
func (h *BridgeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	idHex := r.PathValue("id")
	if len(common.FromHex(idHex)) != common.HashLength {
		writeError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}
	id := common.HexToHash(idHex)

	var req struct {
		Success   bool   `json:"success"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	relay, err := crypto.RecoverRelay(id, req.Success, req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relay signature")
		return
	}

	t, err := h.bridge.Complete(r.Context(), relay, id, req.Success)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferView(t))
}

// GetTransfer returns a single transfer by ID.
// GET /api/bridge/transfers/{id}
func (h *BridgeHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	idHex := r.PathValue("id")
	if len(common.FromHex(idHex)) != common.HashLength {
		writeError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	t, err := h.bridge.Transfer(r.Context(), common.HexToHash(idHex))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferView(t))
}

// ListTransfers returns a user's transfers with pagination.
// GET /api/bridge/transfers?user=0x...&limit=50&offset=0
func (h *BridgeHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid user query parameter required")
		return
	}

	transfers, err := h.bridge.TransfersByUser(r.Context(), user, parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]transferView, 0, len(transfers))
	for _, t := range transfers {
		views = append(views, toTransferView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": views})
}
