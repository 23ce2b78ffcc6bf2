package reconcile

import (
	"github.com/shopspring/decimal"
)

// SyncResult reports what one reconciliation batch changed. The three
// counters partition the incoming events: every event lands in exactly one.
type SyncResult struct {
	Updated  int `json:"updated"`
	Ignored  int `json:"ignored"`
	NotFound int `json:"not_found"`
}

// UploadResult reports an assignment upload: the stored snapshot size plus
// the reconciliation counters for the same batch.
type UploadResult struct {
	Rows     int `json:"rows"`
	Updated  int `json:"updated"`
	Ignored  int `json:"ignored"`
	NotFound int `json:"not_found"`
}

// OverviewResponse is the dashboard payload: fleet counts, settlement
// totals and data-quality figures computed from the current snapshot.
type OverviewResponse struct {
	Terminals        int64            `json:"terminals"`
	ByStatus         map[string]int64 `json:"by_status"`
	OpenIssuances    int64            `json:"open_issuances"`
	AssignmentRows   int64            `json:"assignment_rows"`
	Merchants        int              `json:"merchants"`
	Payments         int64            `json:"payments"`
	TotalExpected    decimal.Decimal  `json:"total_expected"`
	TotalPaid        decimal.Decimal  `json:"total_paid"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	IssueCount       int              `json:"issue_count"`
	IssuesBySeverity map[string]int   `json:"issues_by_severity"`
}
