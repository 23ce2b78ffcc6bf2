package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"github.com/postrack/backend/internal/infrastructure/telemetry"
)

// mockFleetProvider implements telemetry.FleetMetricsProvider for tests.
type mockFleetProvider struct {
	callCount  atomic.Int64
	statusErr  error
	issueErr   error
	paymentErr error
}

func (m *mockFleetProvider) CountTerminalsByStatus(ctx context.Context) (map[string]int64, error) {
	m.callCount.Add(1)
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return map[string]int64{
		"IN_STOCK": 120,
		"ISSUED":   45,
		"FAULTY":   3,
	}, nil
}

func (m *mockFleetProvider) CountOpenIssuances(ctx context.Context) (int64, error) {
	if m.issueErr != nil {
		return 0, m.issueErr
	}
	return 45, nil
}

func (m *mockFleetProvider) SumPaymentAmount(ctx context.Context) (decimal.Decimal, error) {
	if m.paymentErr != nil {
		return decimal.Zero, m.paymentErr
	}
	return decimal.NewFromInt(757125), nil
}

func newTestFleetMetrics(t *testing.T, provider telemetry.FleetMetricsProvider) *telemetry.FleetMetrics {
	t.Helper()

	fm, err := telemetry.NewFleetMetrics(telemetry.FleetMetricsConfig{
		Meter:         noop.NewMeterProvider().Meter("test"),
		Logger:        zaptest.NewLogger(t),
		FleetProvider: provider,
	})
	require.NoError(t, err)
	return fm
}

func TestNewFleetMetrics(t *testing.T) {
	fm := newTestFleetMetrics(t, &mockFleetProvider{})
	assert.NotNil(t, fm)
}

func TestNewFleetMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewFleetMetrics(telemetry.FleetMetricsConfig{
		Logger: zaptest.NewLogger(t),
	})
	require.Error(t, err)
	assert.Equal(t, telemetry.ErrMeterNil, err)
	assert.Contains(t, err.Error(), "meter cannot be nil")
}

func TestFleetMetrics_RecordTerminalsImported(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordTerminalsImported(ctx, telemetry.ImportSourceJSON, 10)
		fm.RecordTerminalsImported(ctx, telemetry.ImportSourceCSV, 25)
	})

	// Zero and negative counts are not recorded.
	assert.NotPanics(t, func() {
		fm.RecordTerminalsImported(ctx, telemetry.ImportSourceJSON, 0)
		fm.RecordTerminalsImported(ctx, telemetry.ImportSourceJSON, -5)
	})
}

func TestFleetMetrics_RecordReconciliationEvents(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordReconciliationEvents(ctx, telemetry.ReconOutcomeUpdated, 12)
		fm.RecordReconciliationEvents(ctx, telemetry.ReconOutcomeIgnored, 3)
		fm.RecordReconciliationEvents(ctx, telemetry.ReconOutcomeNotFound, 1)
		fm.RecordReconciliationEvents(ctx, telemetry.ReconOutcomeUpdated, 0)
	})
}

func TestFleetMetrics_RecordPaymentsMerged(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordPaymentsMerged(ctx, telemetry.MergeActionAdded, 40)
		fm.RecordPaymentsMerged(ctx, telemetry.MergeActionUpdated, 7)
	})
}

func TestFleetMetrics_RecordFeedFetch(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordFeedFetch(ctx, telemetry.FeedFetchOK)
		fm.RecordFeedFetch(ctx, telemetry.FeedFetchUnreachable)
		fm.RecordFeedFetch(ctx, telemetry.FeedFetchBadFormat)
	})
}

func TestFleetMetrics_RecordGauges(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordTerminalCount(ctx, "IN_STOCK", 120)
		fm.RecordOpenIssuances(ctx, 45)
		fm.RecordPaymentVolume(ctx, decimal.NewFromFloat(16825.00))
	})
}

func TestFleetMetrics_PeriodicCollection(t *testing.T) {
	provider := &mockFleetProvider{}
	fm := newTestFleetMetrics(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fm.StartPeriodicCollection(ctx, 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	fm.Stop()

	// One collection runs immediately, one after the first tick.
	assert.GreaterOrEqual(t, provider.callCount.Load(), int64(1))
}

func TestFleetMetrics_PeriodicCollection_StartOnce(t *testing.T) {
	provider := &mockFleetProvider{}
	fm := newTestFleetMetrics(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repeated starts must not spawn extra collectors.
	fm.StartPeriodicCollection(ctx, time.Hour)
	fm.StartPeriodicCollection(ctx, time.Hour)
	fm.StartPeriodicCollection(ctx, time.Hour)
	time.Sleep(50 * time.Millisecond)
	fm.Stop()

	assert.Equal(t, int64(1), provider.callCount.Load())
}

func TestFleetMetrics_PeriodicCollection_ProviderErrors(t *testing.T) {
	provider := &mockFleetProvider{
		statusErr:  errors.New("db down"),
		issueErr:   errors.New("db down"),
		paymentErr: errors.New("db down"),
	}
	fm := newTestFleetMetrics(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider errors are logged and must not stop the collector.
	assert.NotPanics(t, func() {
		fm.StartPeriodicCollection(ctx, 50*time.Millisecond)
		time.Sleep(120 * time.Millisecond)
		fm.Stop()
	})
	assert.GreaterOrEqual(t, provider.callCount.Load(), int64(2))
}

func TestFleetMetrics_Stop_Idempotent(t *testing.T) {
	fm := newTestFleetMetrics(t, &mockFleetProvider{})

	fm.StartPeriodicCollection(context.Background(), time.Hour)

	assert.NotPanics(t, func() {
		fm.Stop()
		fm.Stop()
		fm.Stop()
	})
}

func TestFleetMetrics_Stop_WithoutStart(t *testing.T) {
	fm := newTestFleetMetrics(t, nil)

	assert.NotPanics(t, func() {
		fm.Stop()
	})
}

func TestImportSourceValues(t *testing.T) {
	assert.Equal(t, telemetry.ImportSource("json"), telemetry.ImportSourceJSON)
	assert.Equal(t, telemetry.ImportSource("csv"), telemetry.ImportSourceCSV)
}

func TestReconOutcomeValues(t *testing.T) {
	assert.Equal(t, telemetry.ReconOutcome("updated"), telemetry.ReconOutcomeUpdated)
	assert.Equal(t, telemetry.ReconOutcome("ignored"), telemetry.ReconOutcomeIgnored)
	assert.Equal(t, telemetry.ReconOutcome("not_found"), telemetry.ReconOutcomeNotFound)
}

func TestMergeActionValues(t *testing.T) {
	assert.Equal(t, telemetry.MergeAction("added"), telemetry.MergeActionAdded)
	assert.Equal(t, telemetry.MergeAction("updated"), telemetry.MergeActionUpdated)
}

func TestFeedFetchResultValues(t *testing.T) {
	assert.Equal(t, telemetry.FeedFetchResult("ok"), telemetry.FeedFetchOK)
	assert.Equal(t, telemetry.FeedFetchResult("unreachable"), telemetry.FeedFetchUnreachable)
	assert.Equal(t, telemetry.FeedFetchResult("bad_format"), telemetry.FeedFetchBadFormat)
}

func TestMetricsError(t *testing.T) {
	err := &telemetry.MetricsError{Op: "TestOp", Err: "something failed"}
	assert.Equal(t, "TestOp: something failed", err.Error())
}
