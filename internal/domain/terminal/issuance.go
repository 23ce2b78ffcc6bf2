package terminal

import (
	"strings"
	"time"

	"github.com/postrack/backend/internal/domain/shared"
)

// AutoCloseNote is appended to an issuance closed by reconciliation rather
// than by an operator return, so the audit trail shows why it ended.
const AutoCloseNote = "auto-closed by reconciliation"

// IssuanceRecord represents one assignment of a terminal serial to a merchant.
// At most one record per serial may be open (ReturnDate null) at any time;
// the store enforces this with a partial unique index and the reconciliation
// transaction closes any other open record before inserting a new one.
type IssuanceRecord struct {
	shared.BaseEntity
	Serial       string `gorm:"not null;index"`
	MerchantID   string `gorm:"index"`
	MerchantName string
	TerminalID   string
	IssueDate    time.Time  `gorm:"type:date;not null"`
	ReturnDate   *time.Time `gorm:"type:date"`
	Notes        string
}

// TableName returns the table name for GORM
func (IssuanceRecord) TableName() string {
	return "issuance_records"
}

// NewIssuanceRecord creates a new open issuance for a serial
func NewIssuanceRecord(serial, merchantID, merchantName, terminalID string, issueDate time.Time) (*IssuanceRecord, error) {
	if strings.TrimSpace(serial) == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Serial cannot be empty")
	}

	r := &IssuanceRecord{
		BaseEntity:   shared.NewBaseEntity(),
		Serial:       strings.TrimSpace(serial),
		MerchantID:   strings.TrimSpace(merchantID),
		MerchantName: strings.TrimSpace(merchantName),
		TerminalID:   strings.TrimSpace(terminalID),
		IssueDate:    issueDate,
	}
	return r, nil
}

// IsOpen returns true if the issuance has not been closed by a return
func (r *IssuanceRecord) IsOpen() bool {
	return r.ReturnDate == nil
}

// Close ends the issuance at the given date, appending a note to the record
func (r *IssuanceRecord) Close(returnDate time.Time, note string) error {
	if !r.IsOpen() {
		return shared.NewDomainError("STATE_CONFLICT", "Issuance is already closed")
	}

	r.ReturnDate = &returnDate
	r.AppendNote(note)
	r.UpdatedAt = time.Now()
	return nil
}

// AppendNote adds a note line, separated from existing notes by "; "
func (r *IssuanceRecord) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes = r.Notes + "; " + note
}

// Matches reports whether the issuance covers exactly this assignment.
// Serial comparison is exact (the stored canonical value), merchant and
// terminal identifiers compare trimmed.
func (r *IssuanceRecord) Matches(serial, merchantID, terminalID string) bool {
	return r.Serial == serial &&
		r.MerchantID == strings.TrimSpace(merchantID) &&
		r.TerminalID == strings.TrimSpace(terminalID)
}
