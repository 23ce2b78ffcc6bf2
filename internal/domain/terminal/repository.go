package terminal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postrack/backend/internal/domain/shared"
)

// TerminalRepository defines the interface for terminal persistence
type TerminalRepository interface {
	// FindByID finds a terminal by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryTerminal, error)

	// FindBySerial finds a terminal by its exact stored serial
	FindBySerial(ctx context.Context, serial string) (*InventoryTerminal, error)

	// FindBySerialNormalized finds a terminal whose stored serial matches the
	// given value under case- and whitespace-insensitive comparison. The
	// returned aggregate carries the store's canonical serial.
	FindBySerialNormalized(ctx context.Context, serial string) (*InventoryTerminal, error)

	// FindAll finds terminals matching the filter (status, search on serial/batch)
	FindAll(ctx context.Context, filter shared.Filter) ([]InventoryTerminal, error)

	// Create inserts a new terminal; duplicate serials surface ErrAlreadyExists
	Create(ctx context.Context, t *InventoryTerminal) error

	// Save updates an existing terminal
	Save(ctx context.Context, t *InventoryTerminal) error

	// Count counts all terminals
	Count(ctx context.Context) (int64, error)

	// CountMatching counts terminals matching the filter
	CountMatching(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts terminals grouped by status
	CountByStatus(ctx context.Context) (map[TerminalStatus]int64, error)

	// DeleteAll removes every terminal (bulk reset)
	DeleteAll(ctx context.Context) error
}

// IssuanceRepository defines the interface for issuance record persistence.
//
// Open issuance lookups are by the store's canonical serial: callers resolve
// the incoming serial through TerminalRepository.FindBySerialNormalized first
// and pass the aggregate's Serial here.
type IssuanceRepository interface {
	// FindOpenBySerial finds the open issuance for a serial, if any
	FindOpenBySerial(ctx context.Context, serial string) (*IssuanceRecord, error)

	// FindOpenByAssignment finds an open issuance matching the exact
	// (serial, merchantID, terminalID) triple
	FindOpenByAssignment(ctx context.Context, serial, merchantID, terminalID string) (*IssuanceRecord, error)

	// FindBySerial lists all issuances for a serial, open record first,
	// then by issue date descending
	FindBySerial(ctx context.Context, serial string) ([]IssuanceRecord, error)

	// FindOpen lists all open issuances
	FindOpen(ctx context.Context) ([]IssuanceRecord, error)

	// Insert persists a new issuance record
	Insert(ctx context.Context, record *IssuanceRecord) error

	// Save updates an existing issuance record
	Save(ctx context.Context, record *IssuanceRecord) error

	// CloseOpen closes every open issuance for a serial with the given
	// return date and note; returns the number of records closed
	CloseOpen(ctx context.Context, serial string, returnDate time.Time, note string) (int64, error)

	// CountOpen counts open issuances
	CountOpen(ctx context.Context) (int64, error)

	// DeleteAll removes every issuance record (bulk reset)
	DeleteAll(ctx context.Context) error
}
