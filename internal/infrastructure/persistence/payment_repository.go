package persistence

import (
	"context"
	"errors"

	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/postrack/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindAll returns every payment record
func (r *GormPaymentRepository) FindAll(ctx context.Context) ([]ledger.PaymentRecord, error) {
	var records []ledger.PaymentRecord
	if err := r.db.WithContext(ctx).
		Order("pay_date DESC NULLS LAST").
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByReceiptKey finds a record by its canonical receipt key
func (r *GormPaymentRepository) FindByReceiptKey(ctx context.Context, key string) (*ledger.PaymentRecord, error) {
	var record ledger.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("receipt_key = ?", key).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByMerchant returns records attributed to a merchant id
func (r *GormPaymentRepository) FindByMerchant(ctx context.Context, merchantID string) ([]ledger.PaymentRecord, error) {
	var records []ledger.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("pay_date DESC NULLS LAST").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// List returns records matching the filter with the total count
func (r *GormPaymentRepository) List(ctx context.Context, filter shared.Filter) ([]ledger.PaymentRecord, int64, error) {
	base := r.db.WithContext(ctx).Model(&ledger.PaymentRecord{})
	base = r.applySearch(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "pay_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	if orderBy == "pay_date" {
		query = query.Order("pay_date " + orderDir + " NULLS LAST")
	} else {
		query = query.Order(orderBy + " " + orderDir)
	}

	var records []ledger.PaymentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Insert persists a new payment record
func (r *GormPaymentRepository) Insert(ctx context.Context, record *ledger.PaymentRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save updates an existing payment record
func (r *GormPaymentRepository) Save(ctx context.Context, record *ledger.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Count counts all payment records
func (r *GormPaymentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ledger.PaymentRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAll removes every payment record
func (r *GormPaymentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&ledger.PaymentRecord{}).Error
}

// applySearch applies the free-text search and field filters
func (r *GormPaymentRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receipt_ref ILIKE ? OR merchant_id ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "merchant_id":
			query = query.Where("merchant_id = ?", value)
		case "payment_type":
			query = query.Where("payment_type = ?", value)
		case "unattributed":
			if value == true {
				query = query.Where("merchant_id = ''")
			}
		}
	}

	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
