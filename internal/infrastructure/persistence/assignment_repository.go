package persistence

import (
	"context"

	"github.com/postrack/backend/internal/domain/reconcile"
	"gorm.io/gorm"
)

// assignmentInsertBatchSize bounds the multi-row insert used when swapping
// in a new snapshot. Uploads run to a few thousand rows.
const assignmentInsertBatchSize = 500

// GormAssignmentRepository implements AssignmentRepository using GORM
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRepository creates a new GormAssignmentRepository
func NewGormAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// ReplaceAll atomically swaps the stored snapshot for the given rows.
// When the repository already runs inside a transaction GORM turns the
// inner transaction into a savepoint.
func (r *GormAssignmentRepository) ReplaceAll(ctx context.Context, rows []reconcile.StoredAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&reconcile.StoredAssignment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, assignmentInsertBatchSize).Error
	})
}

// FindAll returns every stored row of the current snapshot
func (r *GormAssignmentRepository) FindAll(ctx context.Context) ([]reconcile.StoredAssignment, error) {
	var rows []reconcile.StoredAssignment
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of stored rows
func (r *GormAssignmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&reconcile.StoredAssignment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAll removes the stored snapshot
func (r *GormAssignmentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&reconcile.StoredAssignment{}).Error
}

// Ensure GormAssignmentRepository implements AssignmentRepository
var _ reconcile.AssignmentRepository = (*GormAssignmentRepository)(nil)
