// Package events provides the append-only notification pipeline. Every state
// transition in the ledger, risk engine, and transfer coordinator is recorded
// here: first in the audit store, then fanned out to streaming sinks.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// Sink receives a copy of every recorded event. Sink failures are logged and
// never propagated into the operation that produced the event.
type Sink interface {
	Deliver(ctx context.Context, e domain.Event) error
	Name() string
}

// Recorder assigns identity and time to events, appends them to the audit
// store, and fans them out to registered sinks.
type Recorder struct {
	audit  domain.AuditStore
	logger *slog.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// NewRecorder creates a Recorder writing to the given audit store. A nil
// audit store disables the durable log (used in tests and db-less mode).
func NewRecorder(audit domain.AuditStore, logger *slog.Logger) *Recorder {
	return &Recorder{
		audit:  audit,
		logger: logger.With(slog.String("component", "events")),
	}
}

// AddSink registers an additional delivery target. Safe to call before or
// after recording begins.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Emit records a state transition. The mutation that produced the event has
// already committed; delivery failures are logged, not returned, so a flaky
// sink cannot fail an otherwise successful operation.
func (r *Recorder) Emit(ctx context.Context, typ domain.EventType, fields map[string]any) {
	e := domain.Event{
		ID:     uuid.New(),
		Type:   typ,
		At:     time.Now().UTC(),
		Fields: fields,
	}

	if r.audit != nil {
		if err := r.audit.Append(ctx, e); err != nil {
			r.logger.ErrorContext(ctx, "audit append failed",
				slog.String("event", string(typ)),
				slog.String("error", err.Error()),
			)
		}
	}

	r.mu.RLock()
	sinks := r.sinks
	r.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(ctx, e); err != nil {
			r.logger.WarnContext(ctx, "sink delivery failed",
				slog.String("sink", s.Name()),
				slog.String("event", string(typ)),
				slog.String("error", err.Error()),
			)
		}
	}
}
