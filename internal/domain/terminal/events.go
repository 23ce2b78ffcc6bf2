package terminal

import (
	"github.com/google/uuid"
	"github.com/postrack/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryTerminal = "InventoryTerminal"

// Event type constants
const (
	EventTypeTerminalIssued        = "TerminalIssued"
	EventTypeTerminalReturned      = "TerminalReturned"
	EventTypeTerminalStatusChanged = "TerminalStatusChanged"
)

// TerminalIssuedEvent is raised when a terminal is handed to a merchant
type TerminalIssuedEvent struct {
	shared.BaseDomainEvent
	TerminalID   uuid.UUID `json:"terminal_id"`
	Serial       string    `json:"serial"`
	MerchantID   string    `json:"merchant_id"`
	MerchantName string    `json:"merchant_name,omitempty"`
	TID          string    `json:"tid,omitempty"`
}

// NewTerminalIssuedEvent creates a new TerminalIssuedEvent
func NewTerminalIssuedEvent(t *InventoryTerminal, merchantID, merchantName, tid string) *TerminalIssuedEvent {
	return &TerminalIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTerminalIssued, AggregateTypeInventoryTerminal, t.ID),
		TerminalID:      t.ID,
		Serial:          t.Serial,
		MerchantID:      merchantID,
		MerchantName:    merchantName,
		TID:             tid,
	}
}

// EventType returns the event type name
func (e *TerminalIssuedEvent) EventType() string {
	return EventTypeTerminalIssued
}

// TerminalReturnedEvent is raised when a terminal comes back to stock
type TerminalReturnedEvent struct {
	shared.BaseDomainEvent
	TerminalID uuid.UUID `json:"terminal_id"`
	Serial     string    `json:"serial"`
}

// NewTerminalReturnedEvent creates a new TerminalReturnedEvent
func NewTerminalReturnedEvent(t *InventoryTerminal) *TerminalReturnedEvent {
	return &TerminalReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTerminalReturned, AggregateTypeInventoryTerminal, t.ID),
		TerminalID:      t.ID,
		Serial:          t.Serial,
	}
}

// EventType returns the event type name
func (e *TerminalReturnedEvent) EventType() string {
	return EventTypeTerminalReturned
}

// TerminalStatusChangedEvent is raised on administrative status moves
type TerminalStatusChangedEvent struct {
	shared.BaseDomainEvent
	TerminalID uuid.UUID      `json:"terminal_id"`
	Serial     string         `json:"serial"`
	From       TerminalStatus `json:"from"`
	To         TerminalStatus `json:"to"`
}

// NewTerminalStatusChangedEvent creates a new TerminalStatusChangedEvent
func NewTerminalStatusChangedEvent(t *InventoryTerminal, from, to TerminalStatus) *TerminalStatusChangedEvent {
	return &TerminalStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTerminalStatusChanged, AggregateTypeInventoryTerminal, t.ID),
		TerminalID:      t.ID,
		Serial:          t.Serial,
		From:            from,
		To:              to,
	}
}

// EventType returns the event type name
func (e *TerminalStatusChangedEvent) EventType() string {
	return EventTypeTerminalStatusChanged
}
