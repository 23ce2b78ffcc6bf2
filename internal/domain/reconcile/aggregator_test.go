package reconcile

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(serial, mid, name, tid string) AssignmentRow {
	return AssignmentRow{Serial: serial, MerchantID: mid, MerchantName: name, TerminalID: tid}
}

func TestBuildMerchantSummaries(t *testing.T) {
	unitPrice := decimal.NewFromInt(16825)

	t.Run("groups by normalized merchant id", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "0091234", "Tashi Shop", "TID-01"),
			row("AB-101", "91234", "Tashi Shop", "TID-02"),
			row("AB-102", " 91234 ", "Tashi Shop", "TID-03"),
		}

		summaries := BuildMerchantSummaries(rows, nil, unitPrice)

		require.Len(t, summaries, 1)
		assert.Equal(t, "91234", summaries[0].MerchantID)
		assert.Equal(t, 3, summaries[0].TerminalCount)
	})

	t.Run("skips rows with empty merchant id", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "", "No Merchant", "TID-01"),
			row("AB-101", "  ", "No Merchant", "TID-02"),
			row("AB-102", "7", "Real Shop", "TID-03"),
		}

		summaries := BuildMerchantSummaries(rows, nil, unitPrice)

		require.Len(t, summaries, 1)
		assert.Equal(t, "7", summaries[0].MerchantID)
	})

	t.Run("deduplicates terminals by raw serial within a group", func(t *testing.T) {
		rows := []AssignmentRow{
			row("AB-100", "7", "Shop", "TID-01"),
			row("AB-100", "7", "Shop", "TID-02"),
			row("ab-100", "7", "Shop", "TID-03"),
		}

		summaries := BuildMerchantSummaries(rows, nil, unitPrice)

		require.Len(t, summaries, 1)
		// raw values differ, so "AB-100" and "ab-100" count separately
		assert.Equal(t, 2, summaries[0].TerminalCount)
		assert.ElementsMatch(t, []string{"TID-01", "TID-02", "TID-03"}, summaries[0].TerminalIDs)
	})

	t.Run("computes expected paid outstanding and status", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "1", "Paid Shop", "T1"),
			row("S2", "2", "Partial Shop", "T2"),
			row("S3", "2", "Partial Shop", "T3"),
			row("S4", "3", "Unpaid Shop", "T4"),
		}
		ledger := []LedgerEntry{
			{MerchantID: "001", Amount: decimal.NewFromInt(16825)},
			{MerchantID: "2", Amount: decimal.NewFromInt(10000)},
		}

		summaries := BuildMerchantSummaries(rows, ledger, unitPrice)

		require.Len(t, summaries, 3)
		byMID := make(map[string]MerchantSummary)
		for _, s := range summaries {
			byMID[s.MerchantID] = s
		}

		paid := byMID["1"]
		assert.True(t, paid.Expected.Equal(decimal.NewFromInt(16825)))
		assert.True(t, paid.Paid.Equal(decimal.NewFromInt(16825)))
		assert.True(t, paid.Outstanding.IsZero())
		assert.Equal(t, SettlementPaid, paid.Status)

		partial := byMID["2"]
		assert.True(t, partial.Expected.Equal(decimal.NewFromInt(33650)))
		assert.True(t, partial.Paid.Equal(decimal.NewFromInt(10000)))
		assert.True(t, partial.Outstanding.Equal(decimal.NewFromInt(23650)))
		assert.Equal(t, SettlementPartial, partial.Status)

		unpaid := byMID["3"]
		assert.True(t, unpaid.Paid.IsZero())
		assert.True(t, unpaid.Outstanding.Equal(decimal.NewFromInt(16825)))
		assert.Equal(t, SettlementUnpaid, unpaid.Status)
	})

	t.Run("overpayment is PAID", func(t *testing.T) {
		rows := []AssignmentRow{row("S1", "9", "Shop", "T1")}
		ledger := []LedgerEntry{{MerchantID: "9", Amount: decimal.NewFromInt(20000)}}

		summaries := BuildMerchantSummaries(rows, ledger, unitPrice)

		require.Len(t, summaries, 1)
		assert.Equal(t, SettlementPaid, summaries[0].Status)
		assert.True(t, summaries[0].Outstanding.IsNegative())
	})

	t.Run("outstanding equals expected minus paid for every summary", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "1", "A", "T1"), row("S2", "1", "A", "T2"),
			row("S3", "2", "B", "T3"), row("S4", "3", "C", "T4"),
		}
		ledger := []LedgerEntry{
			{MerchantID: "1", Amount: decimal.NewFromInt(5000)},
			{MerchantID: "3", Amount: decimal.NewFromInt(40000)},
		}

		for _, s := range BuildMerchantSummaries(rows, ledger, unitPrice) {
			assert.True(t, s.Outstanding.Equal(s.Expected.Sub(s.Paid)), "merchant %s", s.MerchantID)
		}
	})

	t.Run("sorted by terminal count descending", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "small", "A", "T1"),
			row("S2", "big", "B", "T2"), row("S3", "big", "B", "T3"), row("S4", "big", "B", "T4"),
			row("S5", "mid", "C", "T5"), row("S6", "mid", "C", "T6"),
		}

		summaries := BuildMerchantSummaries(rows, nil, unitPrice)

		require.Len(t, summaries, 3)
		assert.Equal(t, "big", summaries[0].MerchantID)
		assert.Equal(t, "mid", summaries[1].MerchantID)
		assert.Equal(t, "small", summaries[2].MerchantID)
	})

	t.Run("invariant under permutation of input rows", func(t *testing.T) {
		rows := []AssignmentRow{
			row("S1", "1", "Alpha", "T1"), row("S2", "1", "Alpha Shop", "T2"),
			row("S3", "2", "Beta", "T3"), row("S4", "2", "Beta", "T4"),
			row("S5", "3", "Gamma", "T5"), row("S6", "", "None", "T6"),
			row("S1", "1", "Alpha", "T7"),
		}
		ledger := []LedgerEntry{
			{MerchantID: "2", Amount: decimal.NewFromInt(16825)},
			{MerchantID: "01", Amount: decimal.NewFromInt(500)},
		}

		base := BuildMerchantSummaries(rows, ledger, unitPrice)

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 20; i++ {
			shuffled := make([]AssignmentRow, len(rows))
			copy(shuffled, rows)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})

			got := BuildMerchantSummaries(shuffled, ledger, unitPrice)
			require.Len(t, got, len(base))
			for j := range base {
				assert.Equal(t, base[j].MerchantID, got[j].MerchantID)
				assert.Equal(t, base[j].TerminalCount, got[j].TerminalCount)
				assert.Equal(t, base[j].Names, got[j].Names)
				assert.Equal(t, base[j].TerminalIDs, got[j].TerminalIDs)
				assert.Equal(t, base[j].Serials, got[j].Serials)
				assert.True(t, base[j].Paid.Equal(got[j].Paid))
				assert.True(t, base[j].Outstanding.Equal(got[j].Outstanding))
				assert.Equal(t, base[j].Status, got[j].Status)
			}
		}
	})

	t.Run("empty ledger merchant id never matches a group", func(t *testing.T) {
		rows := []AssignmentRow{row("S1", "5", "Shop", "T1")}
		ledger := []LedgerEntry{{MerchantID: "", Amount: decimal.NewFromInt(99999)}}

		summaries := BuildMerchantSummaries(rows, ledger, unitPrice)

		require.Len(t, summaries, 1)
		assert.True(t, summaries[0].Paid.IsZero())
	})
}
