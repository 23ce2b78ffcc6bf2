package reconcile

// AssignmentRow is one observed (terminal, merchant) pairing from an
// uploaded list. Rows are ephemeral per upload; the engine never mutates
// them and recomputes all aggregates from the current snapshot.
type AssignmentRow struct {
	Serial       string `json:"serial"`
	MerchantID   string `json:"merchant_id"`
	MerchantName string `json:"merchant_name"`
	TerminalID   string `json:"terminal_id"`
	Region       string `json:"region,omitempty"`
	Dzongkhag    string `json:"dzongkhag,omitempty"`
	Contact      string `json:"contact,omitempty"`
}

// Candidate field names per canonical column. Spreadsheets and the upstream
// proxy disagree on spelling, so extraction enumerates every variant seen in
// the wild instead of guessing.
var assignmentFieldNames = map[string][]string{
	"serial":       {"serial", "signature", "serialno", "serialnumber", "deviceserial", "posserial"},
	"merchantId":   {"merchantid", "mid", "merchantcode", "merchantno"},
	"merchantName": {"merchantname", "merchant", "name", "shopname", "businessname"},
	"terminalId":   {"terminalid", "tid", "terminalno", "posid"},
	"region":       {"region", "zone", "branchregion"},
	"dzongkhag":    {"dzongkhag", "district"},
	"contact":      {"contact", "contactno", "phone", "phoneno", "mobile", "mobileno"},
}

// ExtractAssignmentRow maps one loosely-typed record (parsed spreadsheet row
// or JSON object) onto an AssignmentRow using the candidate-name tables.
// Unrecognized keys are ignored; missing fields stay empty.
func ExtractAssignmentRow(raw map[string]any) AssignmentRow {
	idx := NewFieldIndex(raw)
	return AssignmentRow{
		Serial:       idx.Pick(assignmentFieldNames["serial"]...),
		MerchantID:   idx.Pick(assignmentFieldNames["merchantId"]...),
		MerchantName: idx.Pick(assignmentFieldNames["merchantName"]...),
		TerminalID:   idx.Pick(assignmentFieldNames["terminalId"]...),
		Region:       idx.Pick(assignmentFieldNames["region"]...),
		Dzongkhag:    idx.Pick(assignmentFieldNames["dzongkhag"]...),
		Contact:      idx.Pick(assignmentFieldNames["contact"]...),
	}
}

// IsMerchantNameField reports whether a raw column name resolves to the
// merchant name field. Upload pipelines use it to clean names in place
// without knowing which spelling a particular export uses.
func IsMerchantNameField(key string) bool {
	ck := canonicalFieldKey(key)
	for _, name := range assignmentFieldNames["merchantName"] {
		if ck == name {
			return true
		}
	}
	return false
}

// ExtractAssignmentRows maps a batch of loose records
func ExtractAssignmentRows(raw []map[string]any) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(raw))
	for _, item := range raw {
		rows = append(rows, ExtractAssignmentRow(item))
	}
	return rows
}
