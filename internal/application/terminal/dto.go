package terminal

import (
	"time"

	"github.com/google/uuid"
	"github.com/postrack/backend/internal/domain/terminal"
)

// ImportTerminalsRequest represents a bulk serial import
type ImportTerminalsRequest struct {
	Serials      []string   `json:"serials" binding:"required,min=1"`
	Batch        string     `json:"batch"`
	ProcuredDate *time.Time `json:"procured_date"`
}

// ImportResult reports a bulk import: how many serials were added, how many
// were skipped as duplicates or unusable, and the fleet size afterwards.
type ImportResult struct {
	Imported int   `json:"imported"`
	Skipped  int   `json:"skipped"`
	Total    int64 `json:"total"`
}

// IssueTerminalRequest represents a manual issuance to a merchant
type IssueTerminalRequest struct {
	MerchantID   string `json:"merchant_id" binding:"required"`
	MerchantName string `json:"merchant_name"`
	TerminalID   string `json:"terminal_id"`
}

// ReturnTerminalRequest represents a manual return to stock
type ReturnTerminalRequest struct {
	Notes string `json:"notes"`
}

// ChangeStatusRequest represents an administrative status change
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TerminalListFilter represents filter options for the terminal list
type TerminalListFilter struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TerminalResponse represents a terminal in API responses
type TerminalResponse struct {
	ID           uuid.UUID  `json:"id"`
	Serial       string     `json:"serial"`
	Status       string     `json:"status"`
	Batch        string     `json:"batch,omitempty"`
	ProcuredDate *time.Time `json:"procured_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int        `json:"version"`
}

// IssuanceResponse represents an issuance record in API responses
type IssuanceResponse struct {
	ID           uuid.UUID  `json:"id"`
	Serial       string     `json:"serial"`
	MerchantID   string     `json:"merchant_id"`
	MerchantName string     `json:"merchant_name,omitempty"`
	TerminalID   string     `json:"terminal_id,omitempty"`
	IssueDate    time.Time  `json:"issue_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Open         bool       `json:"open"`
}

// TerminalDetailResponse is a terminal with its issuance history
type TerminalDetailResponse struct {
	TerminalResponse
	Issuances []IssuanceResponse `json:"issuances"`
}

// StockStatsResponse reports fleet counts for the dashboard
type StockStatsResponse struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	OpenIssuances int64            `json:"open_issuances"`
}

// ToTerminalResponse converts a terminal aggregate to its response form
func ToTerminalResponse(t *terminal.InventoryTerminal) TerminalResponse {
	return TerminalResponse{
		ID:           t.ID,
		Serial:       t.Serial,
		Status:       t.Status.String(),
		Batch:        t.Batch,
		ProcuredDate: t.ProcuredDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
	}
}

// ToTerminalResponses converts a slice of terminals
func ToTerminalResponses(terminals []terminal.InventoryTerminal) []TerminalResponse {
	responses := make([]TerminalResponse, 0, len(terminals))
	for i := range terminals {
		responses = append(responses, ToTerminalResponse(&terminals[i]))
	}
	return responses
}

// ToIssuanceResponse converts an issuance record to its response form
func ToIssuanceResponse(r *terminal.IssuanceRecord) IssuanceResponse {
	return IssuanceResponse{
		ID:           r.ID,
		Serial:       r.Serial,
		MerchantID:   r.MerchantID,
		MerchantName: r.MerchantName,
		TerminalID:   r.TerminalID,
		IssueDate:    r.IssueDate,
		ReturnDate:   r.ReturnDate,
		Notes:        r.Notes,
		Open:         r.IsOpen(),
	}
}

// ToIssuanceResponses converts a slice of issuance records
func ToIssuanceResponses(records []terminal.IssuanceRecord) []IssuanceResponse {
	responses := make([]IssuanceResponse, 0, len(records))
	for i := range records {
		responses = append(responses, ToIssuanceResponse(&records[i]))
	}
	return responses
}
