package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a state transition observable by external consumers.
type EventType string

const (
	EventAssetAdded         EventType = "asset.added"
	EventAssetStatus        EventType = "asset.status"
	EventDeposit            EventType = "ledger.deposit"
	EventWithdrawal         EventType = "ledger.withdrawal"
	EventLedgerPaused       EventType = "ledger.paused"
	EventLedgerUnpaused     EventType = "ledger.unpaused"
	EventProfileUpdated     EventType = "risk.profile_updated"
	EventAssetRiskUpdated   EventType = "risk.asset_updated"
	EventPositionRiskAlert  EventType = "risk.position_alert"
	EventEmergencyStop      EventType = "risk.emergency_stop"
	EventEmergencyClear     EventType = "risk.emergency_clear"
	EventStopLossSet        EventType = "stoploss.set"
	EventStopLossUpdated    EventType = "stoploss.updated"
	EventStopLossCancelled  EventType = "stoploss.cancelled"
	EventStopLossTriggered  EventType = "stoploss.triggered"
	EventPriceOverrideSet   EventType = "price.override_set"
	EventPriceOverrideClear EventType = "price.override_cleared"
	EventDomainAdded        EventType = "bridge.domain_added"
	EventDomainUpdated      EventType = "bridge.domain_updated"
	EventTransferInitiated  EventType = "bridge.initiated"
	EventTransferCompleted  EventType = "bridge.completed"
	EventTransferReverted   EventType = "bridge.reverted"
)

// Event is a single append-only notification. The full history of events is
// sufficient to reconstruct every state transition without re-reading
// mutable state.
type Event struct {
	ID     uuid.UUID      `json:"id"`
	Type   EventType      `json:"type"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Channel groups event types into coarse pub/sub channels for streaming
// consumers.
func (e Event) Channel() string {
	switch e.Type {
	case EventDeposit, EventWithdrawal, EventLedgerPaused, EventLedgerUnpaused:
		return "ev:ledger"
	case EventProfileUpdated, EventAssetRiskUpdated, EventPositionRiskAlert,
		EventEmergencyStop, EventEmergencyClear:
		return "ev:risk"
	case EventStopLossSet, EventStopLossUpdated, EventStopLossCancelled, EventStopLossTriggered:
		return "ev:stoploss"
	case EventTransferInitiated, EventTransferCompleted, EventTransferReverted,
		EventDomainAdded, EventDomainUpdated:
		return "ev:bridge"
	case EventPriceOverrideSet, EventPriceOverrideClear:
		return "ev:price"
	default:
		return "ev:admin"
	}
}
