package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// StreamSink forwards events into the pub/sub and stream layer so live
// consumers (websocket clients, external workers) see them as they happen.
type StreamSink struct {
	stream domain.EventStream
}

// NewStreamSink creates a sink delivering into the given stream.
func NewStreamSink(stream domain.EventStream) *StreamSink {
	return &StreamSink{stream: stream}
}

// Deliver publishes the event on its channel and appends it to the durable
// stream.
func (s *StreamSink) Deliver(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	if err := s.stream.Publish(ctx, e.Channel(), payload); err != nil {
		return err
	}
	return s.stream.Append(ctx, payload)
}

// Name returns the sink identifier.
func (s *StreamSink) Name() string {
	return "stream"
}

// Alerter is the notification surface the alert sink needs.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// alertTypes are the event types worth waking an operator for.
var alertTypes = map[domain.EventType]string{
	domain.EventPositionRiskAlert: "Position risk alert",
	domain.EventEmergencyStop:     "Emergency stop engaged",
	domain.EventEmergencyClear:    "Emergency stop cleared",
	domain.EventLedgerPaused:      "Custody ledger paused",
	domain.EventLedgerUnpaused:    "Custody ledger unpaused",
	domain.EventStopLossTriggered: "Stop-loss triggered",
	domain.EventTransferReverted:  "Cross-domain transfer reverted",
}

// AlertSink forwards operator-grade events to the notification channels.
// Routine events (deposits, assessments, completions) are ignored here; the
// audit log and stream carry the full history.
type AlertSink struct {
	alerter Alerter
}

// NewAlertSink creates a sink delivering through the given Alerter.
func NewAlertSink(alerter Alerter) *AlertSink {
	return &AlertSink{alerter: alerter}
}

// Deliver notifies operators when the event type is alert-worthy.
func (s *AlertSink) Deliver(ctx context.Context, e domain.Event) error {
	title, ok := alertTypes[e.Type]
	if !ok {
		return nil
	}

	message := string(e.Type)
	for k, v := range e.Fields {
		message += fmt.Sprintf("\n%s: %v", k, v)
	}
	return s.alerter.Notify(ctx, string(e.Type), title, message)
}

// Name returns the sink identifier.
func (s *AlertSink) Name() string {
	return "alerts"
}
