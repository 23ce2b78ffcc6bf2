package terminal

import (
	"fmt"
	"strings"
	"time"

	"github.com/postrack/backend/internal/domain/shared"
)

// TerminalStatus represents the lifecycle status of a POS terminal
type TerminalStatus string

const (
	StatusInStock  TerminalStatus = "IN_STOCK"
	StatusIssued   TerminalStatus = "ISSUED"
	StatusReturned TerminalStatus = "RETURNED"
	StatusFaulty   TerminalStatus = "FAULTY"
	StatusScrapped TerminalStatus = "SCRAPPED"
)

// IsValid checks if the status is a valid TerminalStatus
func (s TerminalStatus) IsValid() bool {
	switch s {
	case StatusInStock, StatusIssued, StatusReturned, StatusFaulty, StatusScrapped:
		return true
	}
	return false
}

// String returns the string representation of TerminalStatus
func (s TerminalStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Issue and Return additionally require an exact source state (IN_STOCK and
// ISSUED respectively); this table also covers the administrative moves.
func (s TerminalStatus) CanTransitionTo(target TerminalStatus) bool {
	switch s {
	case StatusInStock:
		return target == StatusIssued || target == StatusFaulty || target == StatusScrapped
	case StatusIssued:
		return target == StatusInStock || target == StatusReturned || target == StatusFaulty || target == StatusScrapped
	case StatusReturned:
		return target == StatusInStock
	case StatusFaulty:
		return target == StatusInStock || target == StatusScrapped
	case StatusScrapped:
		return false // Terminal state
	}
	return false
}

// InventoryTerminal represents a physical POS terminal owned by the bank.
// It is the aggregate root for terminal stock operations; the serial number
// is the business identifier and is stored trimmed and upper-cased.
type InventoryTerminal struct {
	shared.BaseAggregateRoot
	Serial       string         `gorm:"not null;uniqueIndex"`
	Status       TerminalStatus `gorm:"not null;default:'IN_STOCK';index"`
	Batch        string
	ProcuredDate *time.Time `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (InventoryTerminal) TableName() string {
	return "inventory_terminals"
}

// NewInventoryTerminal creates a new terminal in IN_STOCK status.
// The serial is canonicalized (trimmed, upper-cased) before storage.
func NewInventoryTerminal(serial, batch string, procuredDate *time.Time) (*InventoryTerminal, error) {
	canonical := strings.ToUpper(strings.TrimSpace(serial))
	if canonical == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Serial cannot be empty")
	}

	t := &InventoryTerminal{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Serial:            canonical,
		Status:            StatusInStock,
		Batch:             strings.TrimSpace(batch),
		ProcuredDate:      procuredDate,
	}
	return t, nil
}

// Issue hands the terminal to a merchant. Only valid from IN_STOCK.
func (t *InventoryTerminal) Issue(merchantID, merchantName, terminalID string) error {
	if t.Status != StatusInStock {
		return shared.NewDomainError("STATE_CONFLICT",
			fmt.Sprintf("Terminal %s is %s, only IN_STOCK terminals can be issued", t.Serial, t.Status))
	}

	t.Status = StatusIssued
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTerminalIssuedEvent(t, merchantID, merchantName, terminalID))
	return nil
}

// Return takes the terminal back from a merchant. Only valid from ISSUED.
func (t *InventoryTerminal) Return() error {
	if t.Status != StatusIssued {
		return shared.NewDomainError("STATE_CONFLICT",
			fmt.Sprintf("Terminal %s is %s, only ISSUED terminals can be returned", t.Serial, t.Status))
	}

	t.Status = StatusInStock
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTerminalReturnedEvent(t))
	return nil
}

// MarkIssued records that the terminal is held by a merchant according to the
// observed assignment list. Reconciliation uses this instead of Issue: the
// uploaded list is authoritative, so no stock-state guard applies here.
func (t *InventoryTerminal) MarkIssued() {
	t.Status = StatusIssued
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// ChangeStatus performs an administrative status move (FAULTY, SCRAPPED,
// back to IN_STOCK after repair) guarded by the transition table.
func (t *InventoryTerminal) ChangeStatus(target TerminalStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown terminal status: %s", target))
	}
	if !t.Status.CanTransitionTo(target) {
		return shared.NewDomainError("STATE_CONFLICT",
			fmt.Sprintf("Cannot change terminal %s from %s to %s", t.Serial, t.Status, target))
	}

	from := t.Status
	t.Status = target
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTerminalStatusChangedEvent(t, from, target))
	return nil
}

// IsIssued returns true if the terminal is currently held by a merchant
func (t *InventoryTerminal) IsIssued() bool {
	return t.Status == StatusIssued
}

// IsInStock returns true if the terminal is available for issuing
func (t *InventoryTerminal) IsInStock() bool {
	return t.Status == StatusInStock
}
