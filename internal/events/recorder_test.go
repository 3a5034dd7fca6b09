package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/store/memory"
)

type captureSink struct {
	events []domain.Event
	err    error
}

func (s *captureSink) Deliver(ctx context.Context, e domain.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) Name() string { return "capture" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderEmit(t *testing.T) {
	ctx := context.Background()
	audit := memory.NewAuditStore()
	rec := NewRecorder(audit, testLogger())
	sink := &captureSink{}
	rec.AddSink(sink)

	rec.Emit(ctx, domain.EventDeposit, map[string]any{"user": "0xabc", "amount": "100"})

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	require.Equal(t, domain.EventDeposit, e.Type)
	require.NotEqual(t, [16]byte{}, [16]byte(e.ID))
	require.False(t, e.At.IsZero())
	require.Equal(t, "100", e.Fields["amount"])

	stored, err := audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, e.ID, stored[0].ID)
}

func TestRecorderSinkFailureDoesNotPropagate(t *testing.T) {
	ctx := context.Background()
	audit := memory.NewAuditStore()
	rec := NewRecorder(audit, testLogger())
	broken := &captureSink{err: errors.New("sink down")}
	healthy := &captureSink{}
	rec.AddSink(broken)
	rec.AddSink(healthy)

	// Emit has no error return; a broken sink must not stop delivery to
	// the others or the audit append.
	rec.Emit(ctx, domain.EventWithdrawal, nil)

	require.Len(t, healthy.events, 1)
	stored, err := audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestRecorderNilAudit(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(nil, testLogger())
	sink := &captureSink{}
	rec.AddSink(sink)

	rec.Emit(ctx, domain.EventEmergencyStop, nil)
	require.Len(t, sink.events, 1)
}

func TestEventChannels(t *testing.T) {
	tests := []struct {
		typ  domain.EventType
		want string
	}{
		{domain.EventDeposit, "ev:ledger"},
		{domain.EventLedgerPaused, "ev:ledger"},
		{domain.EventPositionRiskAlert, "ev:risk"},
		{domain.EventEmergencyStop, "ev:risk"},
		{domain.EventStopLossTriggered, "ev:stoploss"},
		{domain.EventTransferInitiated, "ev:bridge"},
		{domain.EventDomainAdded, "ev:bridge"},
		{domain.EventPriceOverrideSet, "ev:price"},
		{domain.EventAssetAdded, "ev:admin"},
	}
	for _, tt := range tests {
		e := domain.Event{Type: tt.typ}
		require.Equal(t, tt.want, e.Channel(), string(tt.typ))
	}
}
