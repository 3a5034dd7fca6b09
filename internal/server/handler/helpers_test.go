package handler

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
)

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("0x00000000000000000000000000000000000000b1")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xb1"), addr)

	for _, bad := range []string{"", "0x123", "b1", "0xZZ000000000000000000000000000000000000b1"} {
		_, err := parseAddress(bad)
		require.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("1000000000000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000000000", v.String())

	for _, bad := range []string{"", "0", "-5", "1.5", "0x10", "ten"} {
		_, err := parseAmount(bad)
		require.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}

func TestCallerAddress(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/custody/deposit", nil)
	_, err := callerAddress(r)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	r.Header.Set("X-Caller-Address", "0x00000000000000000000000000000000000000a1")
	addr, err := callerAddress(r)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xa1"), addr)
}

func TestParseListOpts(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/audit", nil)
	opts := parseListOpts(r)
	require.Equal(t, 50, opts.Limit)
	require.Zero(t, opts.Offset)

	r = httptest.NewRequest("GET", "/api/audit?limit=10000&offset=20", nil)
	opts = parseListOpts(r)
	require.Equal(t, 500, opts.Limit)
	require.Equal(t, 20, opts.Offset)

	r = httptest.NewRequest("GET", "/api/audit?limit=-3&offset=-1", nil)
	opts = parseListOpts(r)
	require.Equal(t, 50, opts.Limit)
	require.Zero(t, opts.Offset)
}

func TestWriteDomainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidInput, 400},
		{domain.ErrNotFound, 404},
		{domain.ErrUnauthorized, 403},
		{domain.ErrAlreadyExists, 409},
		{domain.ErrInsufficientBalance, 409},
		{domain.ErrTransferCompleted, 409},
		{domain.ErrRiskProfileMissing, 412},
		{domain.ErrStalePrice, 503},
		{domain.ErrPaused, 423},
		{domain.ErrEmergencyStop, 423},
		{domain.ErrRateLimited, 429},
		{io.ErrUnexpectedEOF, 500},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/test", nil)
		writeDomainError(w, r, logger, tt.err)
		require.Equal(t, tt.status, w.Code, tt.err.Error())
		require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	}
}
