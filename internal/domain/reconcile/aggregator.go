package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SettlementStatus classifies a merchant's payment position
type SettlementStatus string

const (
	SettlementPaid    SettlementStatus = "PAID"
	SettlementPartial SettlementStatus = "PARTIAL"
	SettlementUnpaid  SettlementStatus = "UNPAID"
)

// LedgerEntry is the aggregator's view of one payment: who paid and how
// much. Callers project full payment records down to this shape.
type LedgerEntry struct {
	MerchantID string
	Amount     decimal.Decimal
}

// MerchantSummary aggregates one merchant's terminals and payments.
// Summaries are derived values: recomputed from the current snapshot on
// every read, never stored.
type MerchantSummary struct {
	MerchantID    string           `json:"merchant_id"`
	Names         []string         `json:"names"`
	TerminalIDs   []string         `json:"terminal_ids"`
	Serials       []string         `json:"serials"`
	TerminalCount int              `json:"terminal_count"`
	Expected      decimal.Decimal  `json:"expected"`
	Paid          decimal.Decimal  `json:"paid"`
	Outstanding   decimal.Decimal  `json:"outstanding"`
	Status        SettlementStatus `json:"status"`
}

// BuildMerchantSummaries groups assignment rows by normalized merchant id,
// computes per-merchant obligations against the payment ledger, and returns
// summaries sorted by terminal count descending.
//
// The result is a pure function of the row multiset: rows with an empty
// merchant id are skipped, terminals deduplicate on the raw serial value
// within a group, and every emitted list (names, TIDs, serials) plus the
// final ordering uses a canonical sort so permutations of the input produce
// identical output. Ties on terminal count order by merchant id.
func BuildMerchantSummaries(rows []AssignmentRow, ledger []LedgerEntry, unitPrice decimal.Decimal) []MerchantSummary {
	type group struct {
		serials map[string]struct{}
		tids    map[string]struct{}
		names   map[string]struct{}
	}

	groups := make(map[string]*group)
	for _, row := range rows {
		key := NormalizeMerchantID(row.MerchantID)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{
				serials: make(map[string]struct{}),
				tids:    make(map[string]struct{}),
				names:   make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.serials[row.Serial] = struct{}{}
		if row.TerminalID != "" {
			g.tids[row.TerminalID] = struct{}{}
		}
		if row.MerchantName != "" {
			g.names[row.MerchantName] = struct{}{}
		}
	}

	paidByMerchant := make(map[string]decimal.Decimal, len(groups))
	for _, entry := range ledger {
		key := NormalizeMerchantID(entry.MerchantID)
		if key == "" {
			continue
		}
		paidByMerchant[key] = paidByMerchant[key].Add(entry.Amount)
	}

	summaries := make([]MerchantSummary, 0, len(groups))
	for key, g := range groups {
		count := len(g.serials)
		expected := unitPrice.Mul(decimal.NewFromInt(int64(count)))
		paid := paidByMerchant[key]
		outstanding := expected.Sub(paid)

		status := SettlementUnpaid
		switch {
		case outstanding.LessThanOrEqual(decimal.Zero):
			status = SettlementPaid
		case paid.GreaterThan(decimal.Zero):
			status = SettlementPartial
		}

		summaries = append(summaries, MerchantSummary{
			MerchantID:    key,
			Names:         sortedKeys(g.names),
			TerminalIDs:   sortedKeys(g.tids),
			Serials:       sortedKeys(g.serials),
			TerminalCount: count,
			Expected:      expected,
			Paid:          paid,
			Outstanding:   outstanding,
			Status:        status,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TerminalCount != summaries[j].TerminalCount {
			return summaries[i].TerminalCount > summaries[j].TerminalCount
		}
		return summaries[i].MerchantID < summaries[j].MerchantID
	})

	return summaries
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
