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

// RiskService defines the engine operations the risk handler requires.
type RiskService interface {
	SetUserRiskProfile(ctx context.Context, user common.Address, p domain.RiskProfile) error
	Profile(ctx context.Context, user common.Address) (domain.RiskProfile, error)
	UpdateAssetRisk(ctx context.Context, caller, asset common.Address, volatility, correlation, liquidity int64) error
	AssetRisk(ctx context.Context, asset common.Address) (domain.AssetRiskMetric, error)
	AssessPositionRisk(ctx context.Context, user, asset common.Address, amount *big.Int) (domain.PositionRisk, error)
	PositionRisk(ctx context.Context, user, asset common.Address) (domain.PositionRisk, error)
	CheckRiskThresholds(ctx context.Context, user, asset common.Address) (bool, error)
	TriggerEmergencyStop(ctx context.Context, caller common.Address) error
	ClearEmergencyStop(ctx context.Context, caller common.Address) error
}

// RiskHandler serves risk profile, metric, and assessment endpoints.
type RiskHandler struct {
	risk   RiskService
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler with the given service.
func NewRiskHandler(risk RiskService, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{risk: risk, logger: logger}
}

type profileRequest struct {
	MaxDrawdown         int64 `json:"max_drawdown"`
	MaxLeverage         int64 `json:"max_leverage"`
	MaxConcentration    int64 `json:"max_concentration"`
	MaxCorrelation      int64 `json:"max_correlation"`
	StopLossThreshold   int64 `json:"stop_loss_threshold"`
	TakeProfitThreshold int64 `json:"take_profit_threshold"`
}

type profileView struct {
	User                string    `json:"user"`
	MaxDrawdown         int64     `json:"max_drawdown"`
	MaxLeverage         int64     `json:"max_leverage"`
	MaxConcentration    int64     `json:"max_concentration"`
	MaxCorrelation      int64     `json:"max_correlation"`
	StopLossThreshold   int64     `json:"stop_loss_threshold"`
	TakeProfitThreshold int64     `json:"take_profit_threshold"`
	Active              bool      `json:"active"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toProfileView(p domain.RiskProfile) profileView {
	return profileView{
		User:                p.User.Hex(),
		MaxDrawdown:         p.MaxDrawdown,
		MaxLeverage:         p.MaxLeverage,
		MaxConcentration:    p.MaxConcentration,
		MaxCorrelation:      p.MaxCorrelation,
		StopLossThreshold:   p.StopLossThreshold,
		TakeProfitThreshold: p.TakeProfitThreshold,
		Active:              p.Active,
		UpdatedAt:           p.UpdatedAt,
	}
}

type positionRiskView struct {
	User          string    `json:"user"`
	Asset         string    `json:"asset"`
	Score         int64     `json:"score"`
	Amount        string    `json:"amount"`
	Leverage      int64     `json:"leverage"`
	Concentration int64     `json:"concentration"`
	AssessedAt    time.Time `json:"assessed_at"`
}

func toPositionRiskView(pr domain.PositionRisk) positionRiskView {
	return positionRiskView{
		User:          pr.User.Hex(),
		Asset:         pr.Asset.Hex(),
		Score:         pr.Score,
		Amount:        bigStr(pr.Amount),
		Leverage:      pr.Leverage,
		Concentration: pr.Concentration,
		AssessedAt:    pr.AssessedAt,
	}
}

// SetProfile creates or replaces a user's risk profile.
// PUT /api/risk/profiles/{user}
func (h *RiskHandler) SetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p := domain.RiskProfile{
		User:                user,
		MaxDrawdown:         req.MaxDrawdown,
		MaxLeverage:         req.MaxLeverage,
		MaxConcentration:    req.MaxConcentration,
		MaxCorrelation:      req.MaxCorrelation,
		StopLossThreshold:   req.StopLossThreshold,
		TakeProfitThreshold: req.TakeProfitThreshold,
		Active:              true,
	}
	if err := h.risk.SetUserRiskProfile(r.Context(), user, p); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	stored, err := h.risk.Profile(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(stored))
}

// GetProfile returns a user's risk profile.
// GET /api/risk/profiles/{user}
func (h *RiskHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	p, err := h.risk.Profile(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(p))
}

// UpdateAssetRisk stores assessor-supplied metrics for an asset.
// PUT /api/risk/assets/{address}
func (h *RiskHandler) UpdateAssetRisk(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}
	asset, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	var req struct {
		Volatility  int64 `json:"volatility"`
		Correlation int64 `json:"correlation"`
		Liquidity   int64 `json:"liquidity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.risk.UpdateAssetRisk(r.Context(), caller, asset, req.Volatility, req.Correlation, req.Liquidity); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "asset": asset.Hex()})
}

// GetAssetRisk returns the stored risk metric for an asset.
// GET /api/risk/assets/{address}
func (h *RiskHandler) GetAssetRisk(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset address")
		return
	}

	m, err := h.risk.AssetRisk(r.Context(), asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":       m.Asset.Hex(),
		"volatility":  m.Volatility,
		"correlation": m.Correlation,
		"liquidity":   m.Liquidity,
		"updated_by":  m.UpdatedBy.Hex(),
		"updated_at":  m.UpdatedAt,
	})
}

// AssessPosition computes and stores the risk score for a position.
// POST /api/risk/assess
func (h *RiskHandler) AssessPosition(w http.ResponseWriter, r *http.Request) {
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

	pr, err := h.risk.AssessPositionRisk(r.Context(), user, asset, amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionRiskView(pr))
}

// GetPositionRisk returns the last computed risk score for a position.
// GET /api/risk/positions?user=0x...&asset=0x...
func (h *RiskHandler) GetPositionRisk(w http.ResponseWriter, r *http.Request) {
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

	pr, err := h.risk.PositionRisk(r.Context(), user, asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionRiskView(pr))
}

// CheckThresholds reports whether a position is inside its profile bounds.
// GET /api/risk/check?user=0x...&asset=0x...
func (h *RiskHandler) CheckThresholds(w http.ResponseWriter, r *http.Request) {
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

	ok, err := h.risk.CheckRiskThresholds(r.Context(), user, asset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user.Hex(),
		"asset":         asset.Hex(),
		"within_limits": ok,
	})
}

// EmergencyStop engages the system-wide emergency stop. Admin only.
// POST /api/risk/emergency-stop
func (h *RiskHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	if err := h.risk.TriggerEmergencyStop(r.Context(), caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// ClearEmergencyStop releases the system-wide emergency stop. Admin only.
// DELETE /api/risk/emergency-stop
func (h *RiskHandler) ClearEmergencyStop(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid X-Caller-Address header required")
		return
	}

	if err := h.risk.ClearEmergencyStop(r.Context(), caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
