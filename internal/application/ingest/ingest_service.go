package ingestapp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	ledgerapp "github.com/postrack/backend/internal/application/ledger"
	reconcileapp "github.com/postrack/backend/internal/application/reconcile"
	"github.com/postrack/backend/internal/domain/reconcile"
	"github.com/postrack/backend/internal/domain/shared"
	csvimport "github.com/postrack/backend/internal/infrastructure/import"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ArchiveStore keeps the raw bytes of processed uploads so a disputed
// reconciliation can be traced back to the exact file the bank sent.
// Implemented by the infrastructure layer (S3 or a local stub).
type ArchiveStore interface {
	Store(ctx context.Context, key, contentType string, data []byte) error
}

// PaymentImportResult represents the outcome of a payments CSV upload
type PaymentImportResult struct {
	Rows    int `json:"rows"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// IngestService turns uploaded CSV files into assignment snapshots and
// ledger merges. It owns the file-level concerns (parsing, merchant name
// cleanup, archiving) and delegates all reconciliation and merge
// semantics to the owning services.
type IngestService struct {
	reconciliation *reconcileapp.ReconciliationService
	payments       *ledgerapp.PaymentService
	archive        ArchiveStore
	logger         *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	reconciliation *reconcileapp.ReconciliationService,
	payments *ledgerapp.PaymentService,
	archive ArchiveStore,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		reconciliation: reconciliation,
		payments:       payments,
		archive:        archive,
		logger:         logger,
	}
}

// ImportAssignmentsCSV parses an assignment export and replaces the
// stored snapshot with it, reconciling terminal stock in the same
// transaction. Merchant names are tidied on this path only; JSON uploads
// carry whatever the caller sent.
func (s *IngestService) ImportAssignmentsCSV(ctx context.Context, filename string, data []byte) (*reconcileapp.UploadResult, error) {
	records, err := csvimport.ParseBytes(data)
	if err != nil {
		return nil, invalidCSV(err)
	}

	rows := csvimport.RecordValues(records)
	tidyMerchantNames(rows)

	result, err := s.reconciliation.UploadAssignments(ctx, rows)
	if err != nil {
		return nil, err
	}

	s.archiveUpload(ctx, "assignments", filename, data)

	s.logger.Info("Assignment CSV imported",
		zap.String("filename", filename),
		zap.Int("rows", result.Rows),
		zap.Int("updated", result.Updated))
	return result, nil
}

// ImportPaymentsCSV parses a payments export and merges it into the
// ledger under the usual merge semantics.
func (s *IngestService) ImportPaymentsCSV(ctx context.Context, filename string, data []byte) (*PaymentImportResult, error) {
	records, err := csvimport.ParseBytes(data)
	if err != nil {
		return nil, invalidCSV(err)
	}

	rows := csvimport.RecordValues(records)
	merged, err := s.payments.Merge(ctx, rows)
	if err != nil {
		return nil, err
	}

	s.archiveUpload(ctx, "payments", filename, data)

	s.logger.Info("Payment CSV imported",
		zap.String("filename", filename),
		zap.Int("rows", len(rows)),
		zap.Int("added", merged.Added),
		zap.Int("updated", merged.Updated))
	return &PaymentImportResult{
		Rows:    len(rows),
		Added:   merged.Added,
		Updated: merged.Updated,
	}, nil
}

// archiveUpload stores the original file bytes under a dated key.
// Archive failures are logged and swallowed; the import result stands on
// its own.
func (s *IngestService) archiveUpload(ctx context.Context, kind, filename string, data []byte) {
	if s.archive == nil {
		return
	}

	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "upload.csv"
	}
	key := fmt.Sprintf("uploads/%s/%s/%s_%s",
		kind, time.Now().UTC().Format("2006-01-02"), uuid.New().String(), name)

	if err := s.archive.Store(ctx, key, "text/csv", data); err != nil {
		s.logger.Warn("Failed to archive upload",
			zap.String("key", key),
			zap.Error(err))
	}
}

// TidyMerchantName collapses runs of whitespace and converts names the
// back office exported in a single case to title case. Mixed-case names
// pass through with only the whitespace collapsed.
func TidyMerchantName(name string) string {
	return tidyName(cases.Title(language.English), name)
}

func tidyName(caser cases.Caser, name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	if name == lower || name == strings.ToUpper(name) {
		return caser.String(lower)
	}
	return name
}

// tidyMerchantNames rewrites merchant name columns in place, whichever
// header spelling the export used.
func tidyMerchantNames(rows []map[string]any) {
	caser := cases.Title(language.English)
	for _, row := range rows {
		for k, v := range row {
			name, ok := v.(string)
			if !ok || name == "" {
				continue
			}
			if reconcile.IsMerchantNameField(k) {
				row[k] = tidyName(caser, name)
			}
		}
	}
}

func invalidCSV(err error) error {
	return shared.WrapDomainError("INVALID_FORMAT", err.Error(), shared.ErrInvalidFormat)
}
