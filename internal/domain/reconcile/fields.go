package reconcile

import (
	"strconv"
	"strings"
)

// FieldIndex is a canonical-key view over one loosely-typed record. Keys
// are lower-cased with spaces, underscores, dashes and dots removed, so
// "Merchant_ID", "merchant id" and "merchantId" all resolve identically.
// The ledger feed extraction shares this index with assignment rows.
type FieldIndex map[string]any

// NewFieldIndex builds the canonical index; the first occurrence wins for
// colliding keys.
func NewFieldIndex(raw map[string]any) FieldIndex {
	idx := make(FieldIndex, len(raw))
	for k, v := range raw {
		ck := canonicalFieldKey(k)
		if _, exists := idx[ck]; !exists {
			idx[ck] = v
		}
	}
	return idx
}

// Pick returns the value of the first candidate field present with a
// non-empty scalar value, rendered as a trimmed string.
func (idx FieldIndex) Pick(candidates ...string) string {
	for _, name := range candidates {
		if v, ok := idx[name]; ok {
			if s := coerceString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func canonicalFieldKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		switch r {
		case ' ', '_', '-', '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// coerceString renders scalar JSON/spreadsheet values as trimmed strings.
// Numeric identifiers arrive as float64 from encoding/json; they are
// formatted without an exponent so MIDs like 91234 survive intact.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}
