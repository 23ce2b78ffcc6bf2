package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// TerminalSortFields contains allowed sort fields for terminals
var TerminalSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"serial":        true,
	"status":        true,
	"batch":         true,
	"procured_date": true,
}

// IssuanceSortFields contains allowed sort fields for issuance records
var IssuanceSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"serial":      true,
	"merchant_id": true,
	"issue_date":  true,
	"return_date": true,
}

// PaymentSortFields contains allowed sort fields for payment records
var PaymentSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"receipt_ref":  true,
	"merchant_id":  true,
	"amount":       true,
	"pay_date":     true,
	"payment_type": true,
}
