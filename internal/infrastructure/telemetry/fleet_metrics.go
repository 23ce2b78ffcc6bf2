// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// FleetMetrics provides business metrics for the terminal fleet.
// It tracks imports, reconciliation outcomes, payment merges, feed fetch
// results, and the current shape of the fleet (terminals by status, open
// issuances, recorded payment volume).
type FleetMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	terminalsImportedTotal *Counter
	reconEventsTotal       *Counter
	paymentsMergedTotal    *Counter
	feedFetchTotal         *Counter

	// Gauge metrics (point-in-time values)
	terminalsByStatus *Gauge
	openIssuances     *Gauge
	paymentVolume     *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	fleetProvider FleetMetricsProvider
}

// FleetMetricsProvider provides fleet data for periodic gauge collection.
// This interface lets the telemetry layer query inventory and ledger state
// without depending on the domain repositories directly.
type FleetMetricsProvider interface {
	// CountTerminalsByStatus returns the number of terminals per lifecycle status.
	CountTerminalsByStatus(ctx context.Context) (map[string]int64, error)

	// CountOpenIssuances returns the number of issuance records with no return date.
	CountOpenIssuances(ctx context.Context) (int64, error)

	// SumPaymentAmount returns the total recorded payment volume.
	SumPaymentAmount(ctx context.Context) (decimal.Decimal, error)
}

// FleetMetricsConfig holds configuration for fleet metrics.
type FleetMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	FleetProvider   FleetMetricsProvider
}

// NewFleetMetrics creates a new FleetMetrics instance.
func NewFleetMetrics(cfg FleetMetricsConfig) (*FleetMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fm := &FleetMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		fleetProvider: cfg.FleetProvider,
	}

	var err error

	fm.terminalsImportedTotal, err = NewCounter(
		cfg.Meter,
		"postrack_terminals_imported_total",
		"Total number of terminals imported into stock",
		"{terminals}",
	)
	if err != nil {
		return nil, err
	}

	fm.reconEventsTotal, err = NewCounter(
		cfg.Meter,
		"postrack_reconciliation_events_total",
		"Total number of assignment events processed by stock reconciliation",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	fm.paymentsMergedTotal, err = NewCounter(
		cfg.Meter,
		"postrack_payments_merged_total",
		"Total number of payment rows merged into the ledger",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	fm.feedFetchTotal, err = NewCounter(
		cfg.Meter,
		"postrack_feed_fetch_total",
		"Total number of payment feed fetch attempts by result",
		"{fetches}",
	)
	if err != nil {
		return nil, err
	}

	fm.terminalsByStatus, err = NewGauge(
		cfg.Meter,
		"postrack_terminals",
		"Current number of terminals by lifecycle status",
		"{terminals}",
	)
	if err != nil {
		return nil, err
	}

	fm.openIssuances, err = NewGauge(
		cfg.Meter,
		"postrack_open_issuances",
		"Current number of issuance records without a return date",
		"{issuances}",
	)
	if err != nil {
		return nil, err
	}

	fm.paymentVolume, err = NewFloatGauge(
		cfg.Meter,
		"postrack_payment_volume",
		"Total recorded payment volume in the ledger",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return fm, nil
}

// =============================================================================
// Import Metrics
// =============================================================================

// ImportSource labels where imported serials came from.
type ImportSource string

const (
	ImportSourceJSON ImportSource = "json"
	ImportSourceCSV  ImportSource = "csv"
)

// RecordTerminalsImported records how many serials an import call accepted.
func (fm *FleetMetrics) RecordTerminalsImported(ctx context.Context, source ImportSource, count int64) {
	if count <= 0 {
		return
	}
	fm.terminalsImportedTotal.Add(ctx, count,
		AttrImportSource.String(string(source)),
	)
}

// =============================================================================
// Reconciliation Metrics
// =============================================================================

// ReconOutcome labels the per-event outcome of a reconciliation run.
type ReconOutcome string

const (
	ReconOutcomeUpdated  ReconOutcome = "updated"
	ReconOutcomeIgnored  ReconOutcome = "ignored"
	ReconOutcomeNotFound ReconOutcome = "not_found"
)

// RecordReconciliationEvents records the outcome counts of a reconciliation run.
func (fm *FleetMetrics) RecordReconciliationEvents(ctx context.Context, outcome ReconOutcome, count int64) {
	if count <= 0 {
		return
	}
	fm.reconEventsTotal.Add(ctx, count,
		AttrReconOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// MergeAction labels what a merged payment row did to the ledger.
type MergeAction string

const (
	MergeActionAdded   MergeAction = "added"
	MergeActionUpdated MergeAction = "updated"
)

// RecordPaymentsMerged records how many ledger rows a merge touched.
func (fm *FleetMetrics) RecordPaymentsMerged(ctx context.Context, action MergeAction, count int64) {
	if count <= 0 {
		return
	}
	fm.paymentsMergedTotal.Add(ctx, count,
		AttrMergeAction.String(string(action)),
	)
}

// FeedFetchResult labels the outcome of an upstream feed fetch.
type FeedFetchResult string

const (
	FeedFetchOK          FeedFetchResult = "ok"
	FeedFetchUnreachable FeedFetchResult = "unreachable"
	FeedFetchBadFormat   FeedFetchResult = "bad_format"
)

// RecordFeedFetch records one upstream fetch attempt.
func (fm *FleetMetrics) RecordFeedFetch(ctx context.Context, result FeedFetchResult) {
	fm.feedFetchTotal.Inc(ctx,
		AttrFeedResult.String(string(result)),
	)
}

// =============================================================================
// Fleet Gauges
// =============================================================================

// RecordTerminalCount records the current terminal count for one status.
func (fm *FleetMetrics) RecordTerminalCount(ctx context.Context, status string, count int64) {
	fm.terminalsByStatus.Record(ctx, count,
		AttrTerminalStatus.String(status),
	)
}

// RecordOpenIssuances records the current number of open issuance records.
func (fm *FleetMetrics) RecordOpenIssuances(ctx context.Context, count int64) {
	fm.openIssuances.Record(ctx, count)
}

// RecordPaymentVolume records the total recorded payment volume.
func (fm *FleetMetrics) RecordPaymentVolume(ctx context.Context, amount decimal.Decimal) {
	fm.paymentVolume.Record(ctx, amount.InexactFloat64())
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the fleet gauges.
// It is non-blocking; use Stop() to stop collection.
func (fm *FleetMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	fm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go fm.runPeriodicCollection(ctx, interval)
	})
}

func (fm *FleetMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	fm.collectFleetGauges(ctx)

	for {
		select {
		case <-fm.stopChan:
			fm.logger.Info("Stopping periodic fleet metrics collection")
			return
		case <-ctx.Done():
			fm.logger.Info("Context cancelled, stopping periodic fleet metrics collection")
			return
		case <-ticker.C:
			fm.collectFleetGauges(ctx)
		}
	}
}

func (fm *FleetMetrics) collectFleetGauges(ctx context.Context) {
	if fm.fleetProvider == nil {
		fm.logger.Debug("No fleet provider configured, skipping gauge collection")
		return
	}

	byStatus, err := fm.fleetProvider.CountTerminalsByStatus(ctx)
	if err != nil {
		fm.logger.Warn("Failed to count terminals by status", zap.Error(err))
	} else {
		for status, count := range byStatus {
			fm.RecordTerminalCount(ctx, status, count)
		}
	}

	openCount, err := fm.fleetProvider.CountOpenIssuances(ctx)
	if err != nil {
		fm.logger.Warn("Failed to count open issuances", zap.Error(err))
	} else {
		fm.RecordOpenIssuances(ctx, openCount)
	}

	volume, err := fm.fleetProvider.SumPaymentAmount(ctx)
	if err != nil {
		fm.logger.Warn("Failed to sum payment volume", zap.Error(err))
	} else {
		fm.RecordPaymentVolume(ctx, volume)
	}
}

// Stop stops the periodic collection.
func (fm *FleetMetrics) Stop() {
	fm.stopOnce.Do(func() {
		close(fm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewFleetMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
