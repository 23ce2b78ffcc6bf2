// Package reconcile implements the reconciliation engine: identifier
// normalization, per-merchant obligation aggregation, and data-quality
// analysis over uploaded terminal-assignment rows. The computations are
// pure functions over extracted rows; the uploaded snapshot itself is
// persisted behind AssignmentRepository.
package reconcile

import "strings"

// NormalizeMerchantID canonicalizes a merchant identifier: trimmed,
// lower-cased, leading zeros stripped. An identifier consisting only of
// zeros keeps a single "0" so it never collapses to the empty string.
// Empty or absent input normalizes to "".
func NormalizeMerchantID(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	stripped := strings.TrimLeft(s, "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

// NormalizeSerial canonicalizes a terminal serial: trimmed, upper-cased.
// Empty or absent input normalizes to "".
func NormalizeSerial(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
