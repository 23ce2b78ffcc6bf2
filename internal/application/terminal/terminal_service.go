package terminal

import (
	"context"
	"errors"
	"time"

	reconcileapp "github.com/postrack/backend/internal/application/reconcile"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/domain/terminal"
	"go.uber.org/zap"
)

// DefaultReturnNote is recorded when a manual return carries no note
const DefaultReturnNote = "returned to stock"

// TerminalService handles terminal fleet operations: bulk import, manual
// issue and return, administrative status changes, and the reads behind the
// fleet views. Multi-write operations run inside the reconciliation
// transaction scope so the terminal and its issuance ledger never diverge.
type TerminalService struct {
	scope        reconcileapp.TransactionScope
	terminalRepo terminal.TerminalRepository
	issuanceRepo terminal.IssuanceRepository
	eventBus     shared.EventPublisher
	logger       *zap.Logger
}

// NewTerminalService creates a new TerminalService
func NewTerminalService(
	scope reconcileapp.TransactionScope,
	terminalRepo terminal.TerminalRepository,
	issuanceRepo terminal.IssuanceRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *TerminalService {
	return &TerminalService{
		scope:        scope,
		terminalRepo: terminalRepo,
		issuanceRepo: issuanceRepo,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// Import adds serials to the fleet in one transaction. Serials are
// canonicalized before storage; duplicates inside the batch and serials
// already in the fleet are skipped, not errors.
func (s *TerminalService) Import(ctx context.Context, req ImportTerminalsRequest) (*ImportResult, error) {
	result := &ImportResult{}

	err := s.scope.Execute(ctx, func(repos reconcileapp.TransactionalRepositories) error {
		seen := make(map[string]struct{}, len(req.Serials))
		for _, raw := range req.Serials {
			term, err := terminal.NewInventoryTerminal(raw, req.Batch, req.ProcuredDate)
			if err != nil {
				result.Skipped++
				continue
			}
			if _, dup := seen[term.Serial]; dup {
				result.Skipped++
				continue
			}

			existing, err := repos.TerminalRepo().FindBySerial(ctx, term.Serial)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				seen[term.Serial] = struct{}{}
				result.Skipped++
				continue
			}

			if err := repos.TerminalRepo().Create(ctx, term); err != nil {
				return err
			}
			seen[term.Serial] = struct{}{}
			result.Imported++
		}

		total, err := repos.TerminalRepo().Count(ctx)
		if err != nil {
			return err
		}
		result.Total = total
		return nil
	})
	if err != nil {
		s.logger.Error("Terminal import rolled back", zap.Int("serials", len(req.Serials)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Terminals imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int64("total", result.Total))
	return result, nil
}

// Issue hands a terminal to a merchant. The terminal must be IN_STOCK; the
// status change and the new open issuance record commit together.
func (s *TerminalService) Issue(ctx context.Context, serial string, req IssueTerminalRequest) (*TerminalResponse, error) {
	var term *terminal.InventoryTerminal

	err := s.scope.Execute(ctx, func(repos reconcileapp.TransactionalRepositories) error {
		var err error
		term, err = repos.TerminalRepo().FindBySerialNormalized(ctx, serial)
		if err != nil {
			return err
		}

		if err := term.Issue(req.MerchantID, req.MerchantName, req.TerminalID); err != nil {
			return err
		}
		if err := repos.TerminalRepo().Save(ctx, term); err != nil {
			return err
		}

		record, err := terminal.NewIssuanceRecord(term.Serial, req.MerchantID, req.MerchantName, req.TerminalID, startOfDay(time.Now()))
		if err != nil {
			return err
		}
		return repos.IssuanceRepo().Insert(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, term)
	s.logger.Info("Terminal issued",
		zap.String("serial", term.Serial),
		zap.String("merchant_id", req.MerchantID))

	response := ToTerminalResponse(term)
	return &response, nil
}

// Return takes an issued terminal back into stock and closes its open
// issuance with the given note.
func (s *TerminalService) Return(ctx context.Context, serial string, req ReturnTerminalRequest) (*TerminalResponse, error) {
	note := req.Notes
	if note == "" {
		note = DefaultReturnNote
	}

	var term *terminal.InventoryTerminal
	err := s.scope.Execute(ctx, func(repos reconcileapp.TransactionalRepositories) error {
		var err error
		term, err = repos.TerminalRepo().FindBySerialNormalized(ctx, serial)
		if err != nil {
			return err
		}

		if err := term.Return(); err != nil {
			return err
		}
		if err := repos.TerminalRepo().Save(ctx, term); err != nil {
			return err
		}

		_, err = repos.IssuanceRepo().CloseOpen(ctx, term.Serial, startOfDay(time.Now()), note)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, term)
	s.logger.Info("Terminal returned", zap.String("serial", term.Serial))

	response := ToTerminalResponse(term)
	return &response, nil
}

// ChangeStatus applies an administrative status change (FAULTY, SCRAPPED,
// back to IN_STOCK) guarded by the state machine.
func (s *TerminalService) ChangeStatus(ctx context.Context, serial string, req ChangeStatusRequest) (*TerminalResponse, error) {
	term, err := s.terminalRepo.FindBySerialNormalized(ctx, serial)
	if err != nil {
		return nil, err
	}

	if err := term.ChangeStatus(terminal.TerminalStatus(req.Status)); err != nil {
		return nil, err
	}
	if err := s.terminalRepo.Save(ctx, term); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, term)
	s.logger.Info("Terminal status changed",
		zap.String("serial", term.Serial),
		zap.String("status", req.Status))

	response := ToTerminalResponse(term)
	return &response, nil
}

// Get retrieves a terminal with its issuance history, open record first
func (s *TerminalService) Get(ctx context.Context, serial string) (*TerminalDetailResponse, error) {
	term, err := s.terminalRepo.FindBySerialNormalized(ctx, serial)
	if err != nil {
		return nil, err
	}

	records, err := s.issuanceRepo.FindBySerial(ctx, term.Serial)
	if err != nil {
		return nil, err
	}

	return &TerminalDetailResponse{
		TerminalResponse: ToTerminalResponse(term),
		Issuances:        ToIssuanceResponses(records),
	}, nil
}

// List retrieves terminals matching the filter with pagination
func (s *TerminalService) List(ctx context.Context, filter TerminalListFilter) ([]TerminalResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "serial"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	terminals, err := s.terminalRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.terminalRepo.CountMatching(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToTerminalResponses(terminals), total, nil
}

// Stats reports fleet counts for the dashboard
func (s *TerminalService) Stats(ctx context.Context) (*StockStatsResponse, error) {
	total, err := s.terminalRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.terminalRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.issuanceRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	stats := &StockStatsResponse{
		Total:         total,
		ByStatus:      make(map[string]int64, len(byStatus)),
		OpenIssuances: open,
	}
	for status, count := range byStatus {
		stats.ByStatus[status.String()] = count
	}
	return stats, nil
}

// Reset wipes the fleet and its issuance ledger in one transaction
func (s *TerminalService) Reset(ctx context.Context) error {
	err := s.scope.Execute(ctx, func(repos reconcileapp.TransactionalRepositories) error {
		if err := repos.IssuanceRepo().DeleteAll(ctx); err != nil {
			return err
		}
		return repos.TerminalRepo().DeleteAll(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("Terminal inventory reset")
	return nil
}

// publishEvents publishes domain events from the aggregate
func (s *TerminalService) publishEvents(ctx context.Context, term *terminal.InventoryTerminal) {
	if s.eventBus == nil || term == nil {
		return
	}
	events := term.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventBus.Publish(ctx, events...)
	term.ClearDomainEvents()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
