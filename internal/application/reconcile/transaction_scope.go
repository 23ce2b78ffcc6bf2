package reconcile

import (
	"context"

	"github.com/postrack/backend/internal/domain/reconcile"
	"github.com/postrack/backend/internal/domain/terminal"
)

// TransactionScope provides transactional access to the reconciliation
// repositories. When a function is executed within a transaction scope, all
// repository operations are part of the same database transaction and are
// committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories a
// reconciliation run touches. All repositories returned share the same
// underlying database transaction, so a failed run leaves the terminal
// fleet, the issuance ledger and the assignment snapshot exactly as they
// were before the batch started.
type TransactionalRepositories interface {
	// TerminalRepo returns the terminal repository scoped to the current transaction
	TerminalRepo() terminal.TerminalRepository
	// IssuanceRepo returns the issuance record repository scoped to the current transaction
	IssuanceRepo() terminal.IssuanceRepository
	// AssignmentRepo returns the assignment snapshot repository scoped to the current transaction
	AssignmentRepo() reconcile.AssignmentRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	terminalRepo   terminal.TerminalRepository
	issuanceRepo   terminal.IssuanceRepository
	assignmentRepo reconcile.AssignmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	terminalRepo terminal.TerminalRepository,
	issuanceRepo terminal.IssuanceRepository,
	assignmentRepo reconcile.AssignmentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		terminalRepo:   terminalRepo,
		issuanceRepo:   issuanceRepo,
		assignmentRepo: assignmentRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// TerminalRepo returns the terminal repository.
func (s *NoOpTransactionScope) TerminalRepo() terminal.TerminalRepository {
	return s.terminalRepo
}

// IssuanceRepo returns the issuance record repository.
func (s *NoOpTransactionScope) IssuanceRepo() terminal.IssuanceRepository {
	return s.issuanceRepo
}

// AssignmentRepo returns the assignment snapshot repository.
func (s *NoOpTransactionScope) AssignmentRepo() reconcile.AssignmentRepository {
	return s.assignmentRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
