package reconcile

import "sort"

// Severity grades a data-quality issue for operator triage
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// IssueKind identifies a data-quality check. Serials are called signatures
// in the source records, so the duplicate checks keep that name.
type IssueKind string

const (
	IssueMissingSignature   IssueKind = "missing_signature"
	IssueMissingMID         IssueKind = "missing_mid"
	IssueDuplicateSignature IssueKind = "duplicate_signature_global"
	IssueSignatureConflict  IssueKind = "duplicate_signature_conflict"
	IssueInconsistentName   IssueKind = "duplicate_mid_inconsistent_name"
)

// DataQualityIssue is one integrity violation found in the uploaded rows.
// Offender fields are populated per kind: Serial+Count for global
// duplicates, Serial+MerchantIDs for cross-merchant conflicts,
// MerchantID+Names for inconsistent names. Rows carries every affected row.
type DataQualityIssue struct {
	Kind        IssueKind       `json:"kind"`
	Severity    Severity        `json:"severity"`
	Serial      string          `json:"serial,omitempty"`
	MerchantID  string          `json:"merchant_id,omitempty"`
	Count       int             `json:"count,omitempty"`
	MerchantIDs []string        `json:"merchant_ids,omitempty"`
	Names       []string        `json:"names,omitempty"`
	Rows        []AssignmentRow `json:"rows"`
}

// AnalyzeAssignments scans the raw assignment rows for integrity violations.
// Checks are independent and order-insensitive; a row may appear in several
// issues. Output order is canonical (check order, then offender key) so the
// same row multiset always yields the same issue list.
func AnalyzeAssignments(rows []AssignmentRow) []DataQualityIssue {
	issues := make([]DataQualityIssue, 0)

	// Rows with no usable serial at all
	var missingSerial []AssignmentRow
	for _, row := range rows {
		if NormalizeSerial(row.Serial) == "" {
			missingSerial = append(missingSerial, row)
		}
	}
	if len(missingSerial) > 0 {
		issues = append(issues, DataQualityIssue{
			Kind:     IssueMissingSignature,
			Severity: SeverityHigh,
			Count:    len(missingSerial),
			Rows:     missingSerial,
		})
	}

	// Rows with no usable merchant id
	var missingMID []AssignmentRow
	for _, row := range rows {
		if NormalizeMerchantID(row.MerchantID) == "" {
			missingMID = append(missingMID, row)
		}
	}
	if len(missingMID) > 0 {
		issues = append(issues, DataQualityIssue{
			Kind:     IssueMissingMID,
			Severity: SeverityHigh,
			Count:    len(missingMID),
			Rows:     missingMID,
		})
	}

	// Serials appearing more than once, by raw value. Rows are keyed by the
	// raw serial everywhere else, so this check compares raw values too;
	// empty serials are already reported above and are skipped here.
	rowsBySerial := make(map[string][]AssignmentRow)
	for _, row := range rows {
		if NormalizeSerial(row.Serial) == "" {
			continue
		}
		rowsBySerial[row.Serial] = append(rowsBySerial[row.Serial], row)
	}
	for _, serial := range sortedMapKeys(rowsBySerial) {
		dup := rowsBySerial[serial]
		if len(dup) > 1 {
			issues = append(issues, DataQualityIssue{
				Kind:     IssueDuplicateSignature,
				Severity: SeverityHigh,
				Serial:   serial,
				Count:    len(dup),
				Rows:     dup,
			})
		}
	}

	// Serials mapped to more than one distinct merchant. A serial repeating
	// under the same merchant is legitimate (several TIDs) and not flagged.
	for _, serial := range sortedMapKeys(rowsBySerial) {
		dup := rowsBySerial[serial]
		mids := make(map[string]struct{})
		for _, row := range dup {
			if mid := NormalizeMerchantID(row.MerchantID); mid != "" {
				mids[mid] = struct{}{}
			}
		}
		if len(mids) > 1 {
			issues = append(issues, DataQualityIssue{
				Kind:        IssueSignatureConflict,
				Severity:    SeverityHigh,
				Serial:      serial,
				MerchantIDs: sortedKeys(mids),
				Rows:        dup,
			})
		}
	}

	// Merchant ids carrying more than one distinct name spelling
	rowsByMID := make(map[string][]AssignmentRow)
	for _, row := range rows {
		if mid := NormalizeMerchantID(row.MerchantID); mid != "" {
			rowsByMID[mid] = append(rowsByMID[mid], row)
		}
	}
	for _, mid := range sortedMapKeys(rowsByMID) {
		group := rowsByMID[mid]
		names := make(map[string]struct{})
		for _, row := range group {
			names[row.MerchantName] = struct{}{}
		}
		if len(names) > 1 {
			issues = append(issues, DataQualityIssue{
				Kind:       IssueInconsistentName,
				Severity:   SeverityMedium,
				MerchantID: mid,
				Names:      sortedKeys(names),
				Rows:       group,
			})
		}
	}

	return issues
}

func sortedMapKeys(m map[string][]AssignmentRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
