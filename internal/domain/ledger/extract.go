package ledger

import (
	"strings"
	"time"

	"github.com/postrack/backend/internal/domain/reconcile"
	"github.com/shopspring/decimal"
)

// PaymentItem is one extracted, normalized entry from a feed batch or a
// manual paste. MerchantID is already normalized; HasAmount records whether
// the source carried a parseable amount at all, which the backfill rule
// consults before overwriting an existing amount.
type PaymentItem struct {
	ReceiptRef     string
	MerchantID     string
	Amount         decimal.Decimal
	HasAmount      bool
	PayDate        *time.Time
	PaymentType    string
	Notes          string
	CoveredSerials []string
}

// Candidate field names per canonical payment field. The upstream ledger
// and pasted exports disagree on spelling; extraction enumerates the
// variants instead of duck-typing, over the same canonical field index the
// assignment rows use.
var paymentFieldNames = map[string][]string{
	"receiptRef":  {"bankingreferencenumber", "receiptref", "receiptno", "refno", "referenceno", "receipt"},
	"merchantId":  {"merchantid", "mid", "merchantcode", "merchantno"},
	"amount":      {"amount", "amountpaid", "paidamount", "total"},
	"date":        {"date", "paymentdate", "paydate", "transactiondate", "valuedate"},
	"paymentType": {"paymenttype", "type", "mode", "paymentmode"},
	"notes":       {"notes", "remarks", "narration", "description"},
	"serials":     {"coveredserials", "serials", "signatures", "serialnos"},
}

// Accepted date layouts, tried in order
var paymentDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-Jan-2006",
	time.RFC3339,
}

// ExtractPaymentItem maps one loosely-typed payment object onto a
// PaymentItem. It never fails: missing fields stay zero and the caller
// filters unusable items via Usable.
func ExtractPaymentItem(raw map[string]any) PaymentItem {
	idx := reconcile.NewFieldIndex(raw)

	item := PaymentItem{
		ReceiptRef:  idx.Pick(paymentFieldNames["receiptRef"]...),
		MerchantID:  reconcile.NormalizeMerchantID(idx.Pick(paymentFieldNames["merchantId"]...)),
		PaymentType: idx.Pick(paymentFieldNames["paymentType"]...),
		Notes:       idx.Pick(paymentFieldNames["notes"]...),
	}

	if rawAmount := idx.Pick(paymentFieldNames["amount"]...); rawAmount != "" {
		if amount, ok := parseAmount(rawAmount); ok {
			item.Amount = amount
			item.HasAmount = true
		}
	}

	if rawDate := idx.Pick(paymentFieldNames["date"]...); rawDate != "" {
		item.PayDate = parseDate(rawDate)
	}

	if rawSerials := idx.Pick(paymentFieldNames["serials"]...); rawSerials != "" {
		item.CoveredSerials = splitSerials(rawSerials)
	}

	return item
}

// ExtractPaymentItems maps a feed batch, dropping nothing; filtering
// happens in the merge so discard counts stay observable to callers.
func ExtractPaymentItems(raw []map[string]any) []PaymentItem {
	items := make([]PaymentItem, 0, len(raw))
	for _, obj := range raw {
		items = append(items, ExtractPaymentItem(obj))
	}
	return items
}

// Usable reports whether the item survives the discard rules: a receipt
// reference, an attributed merchant, and a positive amount are all required.
func (item PaymentItem) Usable() bool {
	return item.ReceiptRef != "" && item.MerchantID != "" && item.HasAmount && item.Amount.GreaterThan(decimal.Zero)
}

// parseAmount strips every character outside digits, dot and minus before
// parsing, so "Nu. 16,825.00" and "16825" both come through.
func parseAmount(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range paymentDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func splitSerials(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
