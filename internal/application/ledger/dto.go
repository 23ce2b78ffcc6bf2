package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest represents a manually entered payment. MerchantID may
// be left empty when the merchant is not yet identified; a later feed merge
// backfills it.
type CreatePaymentRequest struct {
	ReceiptRef     string          `json:"receipt_ref" binding:"required"`
	MerchantID     string          `json:"merchant_id"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PayDate        *time.Time      `json:"pay_date"`
	PaymentType    string          `json:"payment_type"`
	Notes          string          `json:"notes"`
	CoveredSerials []string        `json:"covered_serials"`
}

// PaymentListFilter represents filter options for the payment list
type PaymentListFilter struct {
	MerchantID string `form:"merchant_id"`
	Search     string `form:"search"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse represents a payment record in API responses
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	ReceiptRef     string          `json:"receipt_ref"`
	MerchantID     string          `json:"merchant_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PayDate        *time.Time      `json:"pay_date,omitempty"`
	PaymentType    string          `json:"payment_type,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CoveredSerials []string        `json:"covered_serials,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToPaymentResponse converts a payment record to its response form
func ToPaymentResponse(p *ledger.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		ReceiptRef:     p.ReceiptRef,
		MerchantID:     p.MerchantID,
		Amount:         p.Amount,
		PayDate:        p.PayDate,
		PaymentType:    p.PaymentType,
		Notes:          p.Notes,
		CoveredSerials: p.SerialList(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToPaymentResponses converts a slice of payment records
func ToPaymentResponses(records []ledger.PaymentRecord) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(records))
	for i := range records {
		responses = append(responses, ToPaymentResponse(&records[i]))
	}
	return responses
}
