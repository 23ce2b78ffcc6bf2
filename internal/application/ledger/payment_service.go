package ledger

import (
	"context"
	"errors"

	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService folds payment batches into the ledger and serves the
// ledger reads. Merging is idempotent: the same batch applied twice adds
// and updates nothing the second time.
type PaymentService struct {
	paymentRepo ledger.PaymentRepository
	feed        ledger.Feed
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService. The feed may be nil when
// no upstream ledger is configured; FetchAndMerge then reports the feed as
// unreachable.
func NewPaymentService(paymentRepo ledger.PaymentRepository, feed ledger.Feed, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		feed:        feed,
		logger:      logger,
	}
}

// Merge extracts payment items from a loosely-typed batch (manual paste or
// feed body) and folds them into the ledger.
func (s *PaymentService) Merge(ctx context.Context, raw []map[string]any) (*ledger.MergeResult, error) {
	return s.MergeItems(ctx, ledger.ExtractPaymentItems(raw))
}

// MergeItems folds extracted payment items into the ledger under the merge
// policy. The seen-index is updated after every insert and backfill, so a
// receipt reference repeated within one batch is deduplicated exactly like
// one arriving in a later batch.
func (s *PaymentService) MergeItems(ctx context.Context, items []ledger.PaymentItem) (*ledger.MergeResult, error) {
	result := &ledger.MergeResult{}
	seen := make(map[string]*ledger.PaymentRecord)

	for _, item := range items {
		if !item.Usable() {
			s.logger.Debug("Discarding unusable payment item",
				zap.String("receipt_ref", item.ReceiptRef),
				zap.String("merchant_id", item.MerchantID))
			continue
		}

		key := ledger.CanonicalReceiptKey(item.ReceiptRef)
		existing, ok := seen[key]
		if !ok {
			var err error
			existing, err = s.paymentRepo.FindByReceiptKey(ctx, key)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
		}

		switch ledger.DecideMerge(existing, item) {
		case ledger.MergeAppend:
			record, err := ledger.NewPaymentRecord(item.ReceiptRef, item.MerchantID, item.Amount,
				item.PayDate, item.PaymentType, item.Notes, item.CoveredSerials)
			if err != nil {
				return nil, err
			}
			if err := s.paymentRepo.Insert(ctx, record); err != nil {
				return nil, err
			}
			seen[key] = record
			result.Added++

		case ledger.MergeBackfill:
			var amount *decimal.Decimal
			if item.HasAmount {
				a := item.Amount
				amount = &a
			}
			if err := existing.BackfillMerchant(item.MerchantID, amount); err != nil {
				return nil, err
			}
			if err := s.paymentRepo.Save(ctx, existing); err != nil {
				return nil, err
			}
			seen[key] = existing
			result.Updated++

		case ledger.MergeSkip:
			if existing != nil {
				seen[key] = existing
			}
		}
	}

	s.logger.Info("Payment batch merged",
		zap.Int("items", len(items)),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated))
	return result, nil
}

// FetchAndMerge pulls the upstream ledger feed and merges it. A failed
// fetch is classified and returned without touching the ledger.
func (s *PaymentService) FetchAndMerge(ctx context.Context) (*ledger.MergeResult, error) {
	if s.feed == nil {
		return nil, shared.NewDomainError(shared.CodeUpstreamUnreachable, "No ledger feed is configured")
	}

	raw, err := s.feed.FetchPayments(ctx)
	if err != nil {
		s.logger.Error("Ledger feed fetch failed", zap.Error(err))
		if errors.Is(err, ledger.ErrFeedInvalidFormat) {
			return nil, shared.WrapDomainError(shared.CodeUpstreamFormat, err.Error(), err)
		}
		return nil, shared.WrapDomainError(shared.CodeUpstreamUnreachable, err.Error(), err)
	}

	return s.Merge(ctx, raw)
}

// Create records a manually entered payment
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	record, err := ledger.NewPaymentRecord(req.ReceiptRef, req.MerchantID, req.Amount,
		req.PayDate, req.PaymentType, req.Notes, req.CoveredSerials)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Insert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.String("receipt_ref", record.ReceiptRef),
		zap.String("merchant_id", record.MerchantID))

	response := ToPaymentResponse(record)
	return &response, nil
}

// List retrieves payments matching the filter with pagination
func (s *PaymentService) List(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.MerchantID != "" {
		domainFilter.Filters["merchant_id"] = filter.MerchantID
	}

	records, total, err := s.paymentRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPaymentResponses(records), total, nil
}

// Clear wipes the payment ledger
func (s *PaymentService) Clear(ctx context.Context) error {
	if err := s.paymentRepo.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("Payment ledger cleared")
	return nil
}
