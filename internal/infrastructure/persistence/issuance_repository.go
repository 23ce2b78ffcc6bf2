package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/domain/terminal"
	"gorm.io/gorm"
)

// GormIssuanceRepository implements IssuanceRepository using GORM
type GormIssuanceRepository struct {
	db *gorm.DB
}

// NewGormIssuanceRepository creates a new GormIssuanceRepository
func NewGormIssuanceRepository(db *gorm.DB) *GormIssuanceRepository {
	return &GormIssuanceRepository{db: db}
}

// FindOpenBySerial finds the open issuance for a serial, if any
func (r *GormIssuanceRepository) FindOpenBySerial(ctx context.Context, serial string) (*terminal.IssuanceRecord, error) {
	var record terminal.IssuanceRecord
	if err := r.db.WithContext(ctx).
		Where("serial = ? AND return_date IS NULL", serial).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindOpenByAssignment finds an open issuance matching the exact
// (serial, merchantID, terminalID) triple. Merchant and terminal identifiers
// are stored trimmed, so inputs are trimmed before comparison.
func (r *GormIssuanceRepository) FindOpenByAssignment(ctx context.Context, serial, merchantID, terminalID string) (*terminal.IssuanceRecord, error) {
	var record terminal.IssuanceRecord
	if err := r.db.WithContext(ctx).
		Where("serial = ? AND merchant_id = ? AND terminal_id = ? AND return_date IS NULL",
			serial, strings.TrimSpace(merchantID), strings.TrimSpace(terminalID)).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindBySerial lists all issuances for a serial, open record first, then by
// issue date descending
func (r *GormIssuanceRepository) FindBySerial(ctx context.Context, serial string) ([]terminal.IssuanceRecord, error) {
	var records []terminal.IssuanceRecord
	if err := r.db.WithContext(ctx).
		Where("serial = ?", serial).
		Order("(return_date IS NULL) DESC").
		Order("issue_date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindOpen lists all open issuances
func (r *GormIssuanceRepository) FindOpen(ctx context.Context) ([]terminal.IssuanceRecord, error) {
	var records []terminal.IssuanceRecord
	if err := r.db.WithContext(ctx).
		Where("return_date IS NULL").
		Order("issue_date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Insert persists a new issuance record
func (r *GormIssuanceRepository) Insert(ctx context.Context, record *terminal.IssuanceRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save updates an existing issuance record
func (r *GormIssuanceRepository) Save(ctx context.Context, record *terminal.IssuanceRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// CloseOpen closes every open issuance for a serial in one statement. The
// note is appended to existing notes the same way the aggregate does it.
func (r *GormIssuanceRepository) CloseOpen(ctx context.Context, serial string, returnDate time.Time, note string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&terminal.IssuanceRecord{}).
		Where("serial = ? AND return_date IS NULL", serial).
		Updates(map[string]any{
			"return_date": returnDate,
			"notes":       gorm.Expr("CASE WHEN notes IS NULL OR notes = '' THEN ? ELSE notes || '; ' || ? END", note, note),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountOpen counts open issuances
func (r *GormIssuanceRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&terminal.IssuanceRecord{}).
		Where("return_date IS NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAll removes every issuance record
func (r *GormIssuanceRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&terminal.IssuanceRecord{}).Error
}

// Ensure GormIssuanceRepository implements IssuanceRepository
var _ terminal.IssuanceRepository = (*GormIssuanceRepository)(nil)
