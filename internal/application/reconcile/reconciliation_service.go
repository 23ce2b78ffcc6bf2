package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/postrack/backend/internal/domain/reconcile"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/domain/terminal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationService drives the stock reconciliation transaction and the
// read-side reports (merchant summaries, data-quality issues, overview).
// Mutations run inside the transaction scope; reads go through the plain
// repositories against committed state.
type ReconciliationService struct {
	scope          TransactionScope
	terminalRepo   terminal.TerminalRepository
	issuanceRepo   terminal.IssuanceRepository
	assignmentRepo reconcile.AssignmentRepository
	paymentRepo    ledger.PaymentRepository
	unitPrice      decimal.Decimal
	logger         *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	scope TransactionScope,
	terminalRepo terminal.TerminalRepository,
	issuanceRepo terminal.IssuanceRepository,
	assignmentRepo reconcile.AssignmentRepository,
	paymentRepo ledger.PaymentRepository,
	unitPrice decimal.Decimal,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		scope:          scope,
		terminalRepo:   terminalRepo,
		issuanceRepo:   issuanceRepo,
		assignmentRepo: assignmentRepo,
		paymentRepo:    paymentRepo,
		unitPrice:      unitPrice,
		logger:         logger,
	}
}

// UploadAssignments replaces the stored assignment snapshot with the given
// raw rows and runs the stock reconciliation over them, all in one
// transaction. A failure rolls back both the snapshot and the fleet changes.
func (s *ReconciliationService) UploadAssignments(ctx context.Context, raw []map[string]any) (*UploadResult, error) {
	rows := reconcile.ExtractAssignmentRows(raw)

	sync := &SyncResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored := make([]reconcile.StoredAssignment, 0, len(rows))
		for _, row := range rows {
			stored = append(stored, reconcile.NewStoredAssignment(row))
		}
		if err := repos.AssignmentRepo().ReplaceAll(ctx, stored); err != nil {
			return err
		}
		return s.syncRows(ctx, repos, rows, sync)
	})
	if err != nil {
		s.logger.Error("Assignment upload rolled back", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, reconciliationFailed(err)
	}

	s.logger.Info("Assignment snapshot replaced",
		zap.Int("rows", len(rows)),
		zap.Int("updated", sync.Updated),
		zap.Int("ignored", sync.Ignored),
		zap.Int("not_found", sync.NotFound))

	return &UploadResult{
		Rows:     len(rows),
		Updated:  sync.Updated,
		Ignored:  sync.Ignored,
		NotFound: sync.NotFound,
	}, nil
}

// SyncAssignments runs the stock reconciliation over the given rows without
// touching the stored snapshot. The whole batch commits or rolls back as one
// unit; on rollback the returned counts are discarded.
func (s *ReconciliationService) SyncAssignments(ctx context.Context, rows []reconcile.AssignmentRow) (*SyncResult, error) {
	result := &SyncResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.syncRows(ctx, repos, rows, result)
	})
	if err != nil {
		s.logger.Error("Reconciliation batch rolled back", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, reconciliationFailed(err)
	}

	s.logger.Info("Reconciliation batch applied",
		zap.Int("rows", len(rows)),
		zap.Int("updated", result.Updated),
		zap.Int("ignored", result.Ignored),
		zap.Int("not_found", result.NotFound))
	return result, nil
}

// syncRows applies the per-event reconciliation loop against the
// transaction-scoped repositories. Every event increments exactly one
// counter; any repository error aborts the batch.
func (s *ReconciliationService) syncRows(ctx context.Context, repos TransactionalRepositories, rows []reconcile.AssignmentRow, result *SyncResult) error {
	today := startOfDay(time.Now())

	for _, row := range rows {
		serial := strings.TrimSpace(row.Serial)
		if serial == "" {
			result.Ignored++
			continue
		}

		term, err := repos.TerminalRepo().FindBySerialNormalized(ctx, serial)
		if errors.Is(err, shared.ErrNotFound) {
			result.NotFound++
			continue
		}
		if err != nil {
			return err
		}

		merchantID := strings.TrimSpace(row.MerchantID)
		terminalID := strings.TrimSpace(row.TerminalID)

		// The uploaded assignment already holds: nothing to change.
		open, err := repos.IssuanceRepo().FindOpenByAssignment(ctx, term.Serial, merchantID, terminalID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if open != nil {
			result.Ignored++
			continue
		}

		// A different assignment is open for this terminal: the uploaded
		// list is authoritative, so close it before recording the new one.
		if _, err := repos.IssuanceRepo().CloseOpen(ctx, term.Serial, today, terminal.AutoCloseNote); err != nil {
			return err
		}

		term.MarkIssued()
		if err := repos.TerminalRepo().Save(ctx, term); err != nil {
			return err
		}

		record, err := terminal.NewIssuanceRecord(term.Serial, merchantID, row.MerchantName, terminalID, today)
		if err != nil {
			return err
		}
		if err := repos.IssuanceRepo().Insert(ctx, record); err != nil {
			return err
		}

		result.Updated++
	}
	return nil
}

// Summaries recomputes the per-merchant settlement view from the stored
// assignment snapshot and the payment ledger.
func (s *ReconciliationService) Summaries(ctx context.Context) ([]reconcile.MerchantSummary, error) {
	rows, payments, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.BuildMerchantSummaries(rows, toLedgerEntries(payments), s.unitPrice), nil
}

// Issues recomputes the data-quality report from the stored snapshot.
func (s *ReconciliationService) Issues(ctx context.Context) ([]reconcile.DataQualityIssue, error) {
	stored, err := s.assignmentRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.AnalyzeAssignments(reconcile.Rows(stored)), nil
}

// Overview assembles the dashboard payload: fleet counts, settlement totals
// and data-quality figures, all recomputed from committed state.
func (s *ReconciliationService) Overview(ctx context.Context) (*OverviewResponse, error) {
	total, err := s.terminalRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.terminalRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	openIssuances, err := s.issuanceRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	paymentCount, err := s.paymentRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	rows, payments, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	summaries := reconcile.BuildMerchantSummaries(rows, toLedgerEntries(payments), s.unitPrice)
	issues := reconcile.AnalyzeAssignments(rows)

	overview := &OverviewResponse{
		Terminals:        total,
		ByStatus:         make(map[string]int64, len(byStatus)),
		OpenIssuances:    openIssuances,
		AssignmentRows:   int64(len(rows)),
		Merchants:        len(summaries),
		Payments:         paymentCount,
		TotalExpected:    decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		IssueCount:       len(issues),
		IssuesBySeverity: make(map[string]int),
	}
	for status, count := range byStatus {
		overview.ByStatus[status.String()] = count
	}
	for _, summary := range summaries {
		overview.TotalExpected = overview.TotalExpected.Add(summary.Expected)
		overview.TotalPaid = overview.TotalPaid.Add(summary.Paid)
		overview.TotalOutstanding = overview.TotalOutstanding.Add(summary.Outstanding)
	}
	for _, issue := range issues {
		overview.IssuesBySeverity[string(issue.Severity)]++
	}
	return overview, nil
}

// loadSnapshot loads the stored assignment rows and the full payment ledger
func (s *ReconciliationService) loadSnapshot(ctx context.Context) ([]reconcile.AssignmentRow, []ledger.PaymentRecord, error) {
	stored, err := s.assignmentRepo.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.paymentRepo.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return reconcile.Rows(stored), payments, nil
}

// toLedgerEntries projects payment records onto the aggregator's input shape
func toLedgerEntries(payments []ledger.PaymentRecord) []reconcile.LedgerEntry {
	entries := make([]reconcile.LedgerEntry, 0, len(payments))
	for _, p := range payments {
		entries = append(entries, reconcile.LedgerEntry{
			MerchantID: p.MerchantID,
			Amount:     p.Amount,
		})
	}
	return entries
}

func reconciliationFailed(cause error) error {
	return shared.WrapDomainError(shared.CodeReconciliationFailed,
		"Reconciliation batch failed and was rolled back", cause)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
