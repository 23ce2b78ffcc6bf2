package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"github.com/postrack/backend/internal/infrastructure/telemetry"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.MetricsConfig{
		Enabled: false,
	}

	mp, err := telemetry.NewMeterProvider(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))

	assert.NoError(t, mp.Shutdown(context.Background()))
	assert.NoError(t, mp.ForceFlush(context.Background()))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that creates an OTLP exporter in short mode")
	}

	logger := zaptest.NewLogger(t)
	cfg := telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ExportInterval:    time.Second,
		ServiceName:       "postrack-test",
		Insecure:          true,
	}

	mp, err := telemetry.NewMeterProvider(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.True(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = mp.Shutdown(ctx)
}

func TestMeterProvider_GetConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "collector:4317",
		ExportInterval:    30 * time.Second,
		ServiceName:       "postrack",
	}

	mp, err := telemetry.NewMeterProvider(context.Background(), cfg, logger)
	require.NoError(t, err)

	got := mp.GetConfig()
	assert.Equal(t, cfg.CollectorEndpoint, got.CollectorEndpoint)
	assert.Equal(t, cfg.ExportInterval, got.ExportInterval)
	assert.Equal(t, cfg.ServiceName, got.ServiceName)
}

func TestMetricsConfig_ZeroValues(t *testing.T) {
	var cfg telemetry.MetricsConfig

	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.CollectorEndpoint)
	assert.Zero(t, cfg.ExportInterval)
	assert.Empty(t, cfg.ServiceName)
	assert.False(t, cfg.Insecure)
}

func TestNewCounter(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	counter, err := telemetry.NewCounter(meter, "test_total", "A test counter", "{requests}")
	require.NoError(t, err)
	require.NotNil(t, counter)

	assert.NotPanics(t, func() {
		counter.Add(context.Background(), 5)
		counter.Inc(context.Background())
	})
}

func TestNewHistogram(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "test_duration_seconds",
		Description: "A test histogram",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)
	require.NotNil(t, hist)

	assert.NotPanics(t, func() {
		hist.Record(context.Background(), 0.25)
		hist.RecordDuration(context.Background(), 150*time.Millisecond)
	})
}

func TestNewGauge(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	gauge, err := telemetry.NewGauge(meter, "test_current", "A test gauge", "{items}")
	require.NoError(t, err)
	require.NotNil(t, gauge)

	assert.NotPanics(t, func() {
		gauge.Record(context.Background(), 42)
	})
}

func TestNewFloatGauge(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	gauge, err := telemetry.NewFloatGauge(meter, "test_volume", "A test float gauge", "{currency}")
	require.NoError(t, err)
	require.NotNil(t, gauge)

	assert.NotPanics(t, func() {
		gauge.Record(context.Background(), 16825.50)
	})
}

func TestDurationBuckets(t *testing.T) {
	assert.NotEmpty(t, telemetry.HTTPDurationBuckets)
	assert.NotEmpty(t, telemetry.DBDurationBuckets)
	assert.NotEmpty(t, telemetry.SmallDurationBuckets)

	// Boundaries must be ascending for bucket assignment to work.
	for i := 1; i < len(telemetry.HTTPDurationBuckets); i++ {
		assert.Greater(t, telemetry.HTTPDurationBuckets[i], telemetry.HTTPDurationBuckets[i-1])
	}
	for i := 1; i < len(telemetry.DBDurationBuckets); i++ {
		assert.Greater(t, telemetry.DBDurationBuckets[i], telemetry.DBDurationBuckets[i-1])
	}
}
