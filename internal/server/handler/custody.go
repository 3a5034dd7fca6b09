package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// CustodyService defines the ledger operations the custody handler requires.
type CustodyService interface {
	Deposit(ctx context.Context, user, asset common.Address, amount *big.Int) error
	Withdraw(ctx context.Context, user, asset common.Address, amount *big.Int) error
	Balance(ctx context.Context, user, asset common.Address) (*big.Int, error)
	BalancesByUser(ctx context.Context, user common.Address) ([]domain.Balance, error)
	TotalCustodied(ctx context.Context, asset common.Address) (*big.Int, error)
}

// CustodyHandler serves deposit, withdrawal, and balance endpoints.
type CustodyHandler struct {
	ledger CustodyService
	logger *slog.Logger
}

// NewCustodyHandler creates a CustodyHandler with the given service.
func NewCustodyHandler(ledger CustodyService, logger *slog.Logger) *CustodyHandler {
	return &CustodyHandler{ledger: ledger, logger: logger}
}

type movementRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (req movementRequest) parse() (user, asset common.Address, amount *big.Int, err error) {
	if user, err = parseAddress(req.User); err != nil {
		return
	}
	if asset, err = parseAddress(req.Asset); err != nil {
		return
	}
	amount, err = parseAmount(req.Amount)
	return
}

type balanceView struct {
	User      string    `json:"user"`
	Asset     string    `json:"asset"`
	Amount    string    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deposit credits custodied funds to a user.
// POST /api/custody/deposit
func (h *CustodyHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	user, asset, amount, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "user, asset, and positive amount are required")
		return
	}

	if err := h.ledger.Deposit(r.Context(), user, asset, amount); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), user, asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "deposited",
		"balance": bigStr(balance),
	})
}

// Withdraw debits custodied funds from a user.
// POST /api/custody/withdraw
func (h *CustodyHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	user, asset, amount, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "user, asset, and positive amount are required")
		return
	}

	if err := h.ledger.Withdraw(r.Context(), user, asset, amount); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), user, asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "withdrawn",
		"balance": bigStr(balance),
	})
}

// GetBalance returns a single user/asset balance.
// GET /api/custody/balance?user=0x...&asset=0x...
func (h *CustodyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user, err := parseAddress(q.Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid user query parameter required")
		return
	}
	asset, err := parseAddress(q.Get("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid asset query parameter required")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), user, asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user":    user.Hex(),
		"asset":   asset.Hex(),
		"balance": bigStr(balance),
	})
}

// ListBalances returns all balances held for a user.
// GET /api/custody/balances?user=0x...
func (h *CustodyHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid user query parameter required")
		return
	}

	balances, err := h.ledger.BalancesByUser(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{
			User:      b.User.Hex(),
			Asset:     b.Asset.Hex(),
			Amount:    bigStr(b.Amount),
			UpdatedAt: b.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": views})
}

// GetTotal returns the total custodied amount for an asset.
// GET /api/custody/total?asset=0x...
func (h *CustodyHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(r.URL.Query().Get("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid asset query parameter required")
		return
	}

	total, err := h.ledger.TotalCustodied(r.Context(), asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"asset": asset.Hex(),
		"total": bigStr(total),
	})
}
