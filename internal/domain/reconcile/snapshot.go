package reconcile

import (
	"context"

	"github.com/postrack/backend/internal/domain/shared"
)

// StoredAssignment is the persisted form of one uploaded assignment row.
// The snapshot is replaced wholesale on every upload so the summary and
// data-quality reads reflect the latest sheet between uploads. Values are
// stored raw; normalization happens at read time.
type StoredAssignment struct {
	shared.BaseEntity
	Serial       string `gorm:"index"`
	MerchantID   string `gorm:"index"`
	MerchantName string
	TerminalID   string
	Region       string
	Dzongkhag    string
	Contact      string
}

// TableName returns the table name for GORM
func (StoredAssignment) TableName() string {
	return "assignment_rows"
}

// NewStoredAssignment converts an extracted row into its persisted form
func NewStoredAssignment(row AssignmentRow) StoredAssignment {
	return StoredAssignment{
		BaseEntity:   shared.NewBaseEntity(),
		Serial:       row.Serial,
		MerchantID:   row.MerchantID,
		MerchantName: row.MerchantName,
		TerminalID:   row.TerminalID,
		Region:       row.Region,
		Dzongkhag:    row.Dzongkhag,
		Contact:      row.Contact,
	}
}

// Row converts the persisted form back into an assignment row
func (a StoredAssignment) Row() AssignmentRow {
	return AssignmentRow{
		Serial:       a.Serial,
		MerchantID:   a.MerchantID,
		MerchantName: a.MerchantName,
		TerminalID:   a.TerminalID,
		Region:       a.Region,
		Dzongkhag:    a.Dzongkhag,
		Contact:      a.Contact,
	}
}

// Rows converts a stored snapshot back into assignment rows
func Rows(stored []StoredAssignment) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(stored))
	for _, a := range stored {
		rows = append(rows, a.Row())
	}
	return rows
}

// AssignmentRepository persists the current assignment snapshot
type AssignmentRepository interface {
	// ReplaceAll atomically swaps the stored snapshot for the given rows
	ReplaceAll(ctx context.Context, rows []StoredAssignment) error

	// FindAll returns every stored row of the current snapshot
	FindAll(ctx context.Context) ([]StoredAssignment, error)

	// Count returns the number of stored rows
	Count(ctx context.Context) (int64, error)

	// DeleteAll removes the stored snapshot
	DeleteAll(ctx context.Context) error
}
