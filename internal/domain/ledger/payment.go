// Package ledger holds the payment ledger: records of merchant payments for
// issued terminals, the loose-field extraction used to read the upstream
// feed, and the idempotent merge policy that folds feed batches in.
package ledger

import (
	"strings"
	"time"
	"unicode"

	"github.com/postrack/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentRecord represents one payment received against terminal fees.
// The receipt reference is the business key: unique across the ledger under
// case- and whitespace-insensitive comparison (ReceiptKey holds the
// canonical form). Amount and covered serials are immutable once the record
// exists, except for the documented merchant-id backfill.
type PaymentRecord struct {
	shared.BaseAggregateRoot
	ReceiptRef     string `gorm:"not null"`
	ReceiptKey     string `gorm:"not null;uniqueIndex"`
	PayDate        *time.Time
	MerchantID     string          `gorm:"index"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentType    string
	Notes          string
	CoveredSerials string
}

// TableName returns the table name for GORM
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// CanonicalReceiptKey folds a receipt reference to its comparison form:
// lower-cased with every whitespace character removed.
func CanonicalReceiptKey(ref string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ref) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewPaymentRecord creates a payment record. MerchantID may be empty for
// manually entered payments whose merchant is identified later via backfill.
func NewPaymentRecord(receiptRef, merchantID string, amount decimal.Decimal, payDate *time.Time, paymentType, notes string, coveredSerials []string) (*PaymentRecord, error) {
	ref := strings.TrimSpace(receiptRef)
	if ref == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_REF", "Receipt reference cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	p := &PaymentRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptRef:        ref,
		ReceiptKey:        CanonicalReceiptKey(ref),
		PayDate:           payDate,
		MerchantID:        strings.TrimSpace(merchantID),
		Amount:            amount,
		PaymentType:       strings.TrimSpace(paymentType),
		Notes:             strings.TrimSpace(notes),
		CoveredSerials:    joinSerials(coveredSerials),
	}
	return p, nil
}

// HasMerchant returns true when the record is attributed to a merchant
func (p *PaymentRecord) HasMerchant() bool {
	return p.MerchantID != ""
}

// BackfillMerchant attributes an unattributed record to a merchant. The
// amount is overwritten only when the incoming item carried one; the
// receipt reference and covered serials never change.
func (p *PaymentRecord) BackfillMerchant(merchantID string, amount *decimal.Decimal) error {
	if p.HasMerchant() {
		return shared.NewDomainError("STATE_CONFLICT", "Payment is already attributed to a merchant")
	}
	merchantID = strings.TrimSpace(merchantID)
	if merchantID == "" {
		return shared.NewDomainError("INVALID_INPUT", "Merchant id for backfill cannot be empty")
	}

	p.MerchantID = merchantID
	if amount != nil {
		p.Amount = *amount
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SerialList splits the stored covered serials back into a slice
func (p *PaymentRecord) SerialList() []string {
	if p.CoveredSerials == "" {
		return nil
	}
	parts := strings.Split(p.CoveredSerials, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinSerials(serials []string) string {
	cleaned := make([]string, 0, len(serials))
	for _, s := range serials {
		if t := strings.TrimSpace(s); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}
