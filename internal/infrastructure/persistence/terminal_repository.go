package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/domain/terminal"
	"gorm.io/gorm"
)

// GormTerminalRepository implements TerminalRepository using GORM
type GormTerminalRepository struct {
	db *gorm.DB
}

// NewGormTerminalRepository creates a new GormTerminalRepository
func NewGormTerminalRepository(db *gorm.DB) *GormTerminalRepository {
	return &GormTerminalRepository{db: db}
}

// FindByID finds a terminal by its ID
func (r *GormTerminalRepository) FindByID(ctx context.Context, id uuid.UUID) (*terminal.InventoryTerminal, error) {
	var t terminal.InventoryTerminal
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindBySerial finds a terminal by its exact stored serial
func (r *GormTerminalRepository) FindBySerial(ctx context.Context, serial string) (*terminal.InventoryTerminal, error) {
	var t terminal.InventoryTerminal
	if err := r.db.WithContext(ctx).First(&t, "serial = ?", serial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindBySerialNormalized finds a terminal whose stored serial matches the given
// value ignoring case and surrounding whitespace. New rows are stored canonical
// already; the TRIM/UPPER on the column keeps lookups working against rows
// loaded before canonicalization was enforced.
func (r *GormTerminalRepository) FindBySerialNormalized(ctx context.Context, serial string) (*terminal.InventoryTerminal, error) {
	canonical := strings.ToUpper(strings.TrimSpace(serial))
	if canonical == "" {
		return nil, shared.ErrNotFound
	}

	var t terminal.InventoryTerminal
	if err := r.db.WithContext(ctx).
		Where("UPPER(TRIM(serial)) = ?", canonical).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll finds terminals matching the filter
func (r *GormTerminalRepository) FindAll(ctx context.Context, filter shared.Filter) ([]terminal.InventoryTerminal, error) {
	var terminals []terminal.InventoryTerminal
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&terminal.InventoryTerminal{}),
		filter,
	)

	if err := query.Find(&terminals).Error; err != nil {
		return nil, err
	}
	return terminals, nil
}

// Create inserts a new terminal
func (r *GormTerminalRepository) Create(ctx context.Context, t *terminal.InventoryTerminal) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save updates an existing terminal
func (r *GormTerminalRepository) Save(ctx context.Context, t *terminal.InventoryTerminal) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// Count counts all terminals
func (r *GormTerminalRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&terminal.InventoryTerminal{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountMatching counts terminals matching the filter
func (r *GormTerminalRepository) CountMatching(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&terminal.InventoryTerminal{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts terminals grouped by status
func (r *GormTerminalRepository) CountByStatus(ctx context.Context) (map[terminal.TerminalStatus]int64, error) {
	var rows []struct {
		Status terminal.TerminalStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&terminal.InventoryTerminal{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[terminal.TerminalStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// DeleteAll removes every terminal
func (r *GormTerminalRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&terminal.InventoryTerminal{}).Error
}

// applyFilter applies filter options to the query
func (r *GormTerminalRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	orderBy := ValidateSortField(filter.OrderBy, TerminalSortFields, "serial")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormTerminalRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("serial ILIKE ? OR batch ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "batch":
			query = query.Where("batch = ?", value)
		}
	}

	return query
}

// Ensure GormTerminalRepository implements TerminalRepository
var _ terminal.TerminalRepository = (*GormTerminalRepository)(nil)
