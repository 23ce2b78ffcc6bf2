package ledger

import (
	"context"

	"github.com/postrack/backend/internal/domain/shared"
)

// PaymentRepository defines the interface for payment ledger persistence
type PaymentRepository interface {
	// FindAll returns every payment record
	FindAll(ctx context.Context) ([]PaymentRecord, error)

	// FindByReceiptKey finds a record by its canonical receipt key
	FindByReceiptKey(ctx context.Context, key string) (*PaymentRecord, error)

	// FindByMerchant returns records attributed to a normalized merchant id
	FindByMerchant(ctx context.Context, merchantID string) ([]PaymentRecord, error)

	// List returns records matching the filter (search on receipt ref,
	// merchant id), newest payment date first
	List(ctx context.Context, filter shared.Filter) ([]PaymentRecord, int64, error)

	// Insert persists a new payment record; a duplicate receipt key
	// surfaces ErrAlreadyExists
	Insert(ctx context.Context, record *PaymentRecord) error

	// Save updates an existing payment record
	Save(ctx context.Context, record *PaymentRecord) error

	// Count counts all payment records
	Count(ctx context.Context) (int64, error)

	// DeleteAll removes every payment record (bulk clear)
	DeleteAll(ctx context.Context) error
}
