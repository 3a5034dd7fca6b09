package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors to HTTP status codes. Unknown
// errors are logged and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPrice):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, msg = http.StatusConflict, "insufficient balance"
	case errors.Is(err, domain.ErrAssetInactive),
		errors.Is(err, domain.ErrDomainInactive),
		errors.Is(err, domain.ErrOrderInactive),
		errors.Is(err, domain.ErrTransferCompleted):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrRiskProfileMissing), errors.Is(err, domain.ErrRiskNotAssessed):
		status, msg = http.StatusPreconditionFailed, err.Error()
	case errors.Is(err, domain.ErrStalePrice):
		status, msg = http.StatusServiceUnavailable, "price is stale"
	case errors.Is(err, domain.ErrPaused), errors.Is(err, domain.ErrEmergencyStop):
		status, msg = http.StatusLocked, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "rate limited"
	default:
		logger.ErrorContext(r.Context(), "handler: request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	writeError(w, status, msg)
}

// callerAddress extracts the acting principal from the X-Caller-Address
// header. Role checks against this address happen in the service layer.
func callerAddress(r *http.Request) (common.Address, error) {
	return parseAddress(r.Header.Get("X-Caller-Address"))
}

// parseAddress validates and decodes a 0x-prefixed hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, domain.ErrInvalidInput
	}
	return common.HexToAddress(s), nil
}

// parseAmount decodes a positive base-10 token amount.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return v, nil
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// bigStr renders a possibly-nil big.Int as a decimal string for JSON bodies.
func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
