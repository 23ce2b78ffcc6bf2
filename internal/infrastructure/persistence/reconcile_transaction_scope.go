package persistence

import (
	"context"

	reconcileapp "github.com/postrack/backend/internal/application/reconcile"
	"github.com/postrack/backend/internal/domain/reconcile"
	"github.com/postrack/backend/internal/domain/terminal"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconcileapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// TerminalRepo returns the terminal repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TerminalRepo() terminal.TerminalRepository {
	return NewGormTerminalRepository(r.tx)
}

// IssuanceRepo returns the issuance record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) IssuanceRepo() terminal.IssuanceRepository {
	return NewGormIssuanceRepository(r.tx)
}

// AssignmentRepo returns the assignment snapshot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AssignmentRepo() reconcile.AssignmentRepository {
	return NewGormAssignmentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ reconcileapp.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ reconcileapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
