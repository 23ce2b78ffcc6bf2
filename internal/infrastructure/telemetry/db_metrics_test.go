package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newManualMeter returns a meter backed by a manual reader so tests can
// collect and inspect recorded data points.
func newManualMeter() (*sdkmetric.ManualReader, metric.Meter) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, provider.Meter("test")
}

// findMetric locates a metric by name in the collected resource metrics.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	t.Run("creates all instruments", func(t *testing.T) {
		_, meter := newManualMeter()

		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.NotNil(t, m.poolConnections)
		assert.NotNil(t, m.poolConnectionsMax)
		assert.NotNil(t, m.queryTotal)
		assert.NotNil(t, m.queryDuration)
		assert.NotNil(t, m.slowQueryTotal)
	})

	t.Run("applies defaults to zero config", func(t *testing.T) {
		_, meter := newManualMeter()

		m, err := NewDBMetrics(meter, DBMetricsConfig{Enabled: true}, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		_, meter := newManualMeter()

		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		assert.NotNil(t, m.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("records query count and duration", func(t *testing.T) {
		reader, meter := newManualMeter()
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "inventory_terminals", 10*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		total := findMetric(&rm, "db_query_total")
		require.NotNil(t, total)
		sum, ok := total.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)

		op, ok := sum.DataPoints[0].Attributes.Value(AttrDBOperation)
		require.True(t, ok)
		assert.Equal(t, "SELECT", op.AsString())

		duration := findMetric(&rm, "db_query_duration_seconds")
		require.NotNil(t, duration)
		hist, ok := duration.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	})

	t.Run("uppercases operation", func(t *testing.T) {
		reader, meter := newManualMeter()
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "insert", "payment_records", time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		total := findMetric(&rm, "db_query_total")
		require.NotNil(t, total)
		sum := total.Data.(metricdata.Sum[int64])
		op, ok := sum.DataPoints[0].Attributes.Value(AttrDBOperation)
		require.True(t, ok)
		assert.Equal(t, "INSERT", op.AsString())
	})

	t.Run("empty operation becomes UNKNOWN", func(t *testing.T) {
		reader, meter := newManualMeter()
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "", "", time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		total := findMetric(&rm, "db_query_total")
		require.NotNil(t, total)
		sum := total.Data.(metricdata.Sum[int64])
		op, ok := sum.DataPoints[0].Attributes.Value(AttrDBOperation)
		require.True(t, ok)
		assert.Equal(t, "UNKNOWN", op.AsString())
	})

	t.Run("slow query recorded above threshold", func(t *testing.T) {
		reader, meter := newManualMeter()
		cfg := DBMetricsConfig{Enabled: true, SlowQueryThreshold: 50 * time.Millisecond}
		m, err := NewDBMetrics(meter, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "issuance_records", 100*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		slow := findMetric(&rm, "db_slow_query_total")
		require.NotNil(t, slow)
		sum := slow.Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)

		table, ok := sum.DataPoints[0].Attributes.Value(AttrDBTable)
		require.True(t, ok)
		assert.Equal(t, "issuance_records", table.AsString())
	})

	t.Run("fast query not counted as slow", func(t *testing.T) {
		reader, meter := newManualMeter()
		cfg := DBMetricsConfig{Enabled: true, SlowQueryThreshold: 50 * time.Millisecond}
		m, err := NewDBMetrics(meter, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "issuance_records", 10*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		assert.Nil(t, findMetric(&rm, "db_slow_query_total"))
	})

	t.Run("slow query with empty table name", func(t *testing.T) {
		reader, meter := newManualMeter()
		cfg := DBMetricsConfig{Enabled: true, SlowQueryThreshold: time.Millisecond}
		m, err := NewDBMetrics(meter, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "", 10*time.Millisecond, nil)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		slow := findMetric(&rm, "db_slow_query_total")
		require.NotNil(t, slow)
		sum := slow.Data.(metricdata.Sum[int64])
		table, ok := sum.DataPoints[0].Attributes.Value(AttrDBTable)
		require.True(t, ok)
		assert.Equal(t, "unknown", table.AsString())
	})
}

func TestDBMetrics_CollectPoolStats(t *testing.T) {
	reader, meter := newManualMeter()
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	m.SetSQLDB(sqlDB)

	ctx := context.Background()
	m.collectPoolStats(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.NotNil(t, findMetric(&rm, "db_pool_connections"))
	assert.NotNil(t, findMetric(&rm, "db_pool_connections_max"))
}

func TestDBMetrics_CollectPoolStats_NoDB(t *testing.T) {
	_, meter := newManualMeter()
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Without a sql.DB the collection is a silent no-op.
	assert.NotPanics(t, func() {
		m.collectPoolStats(context.Background())
	})
}

func TestDBMetrics_StartPoolStatsCollection_NoDB(t *testing.T) {
	_, meter := newManualMeter()
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Starting without SetSQLDB logs a warning and does not spawn the goroutine.
	m.StartPoolStatsCollection(context.Background())
	m.Stop()
}

func TestDBMetrics_Stop_Idempotent(t *testing.T) {
	_, meter := newManualMeter()
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Stop()
		m.Stop()
	})
}

func TestDBMetricsPlugin_Name(t *testing.T) {
	p := NewDBMetricsPlugin(nil, nil)
	assert.Equal(t, "db_metrics", p.Name())
}

func TestDBMetricsPlugin_RecordsQueries(t *testing.T) {
	reader, meter := newManualMeter()
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	db := setupTestDB(t)
	require.NoError(t, db.Use(NewDBMetricsPlugin(m, zaptest.NewLogger(t))))

	require.NoError(t, db.Create(&testModel{Name: "PAX-001"}).Error)

	var models []testModel
	require.NoError(t, db.Find(&models).Error)

	ctx := context.Background()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	total := findMetric(&rm, "db_query_total")
	require.NotNil(t, total)

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	// One INSERT and one SELECT, recorded under separate operation attributes.
	var recorded int64
	for _, dp := range sum.DataPoints {
		recorded += dp.Value
	}
	assert.GreaterOrEqual(t, recorded, int64(2))
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM inventory_terminals", "SELECT"},
		{"  select 1", "SELECT"},
		{"INSERT INTO payment_records VALUES (1)", "INSERT"},
		{"update issuance_records set return_date = ?", "UPDATE"},
		{"DELETE FROM payment_records", "DELETE"},
		{"PRAGMA foreign_keys", "OTHER"},
		{"", "OTHER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), "sql: %q", tt.sql)
	}
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := setupTestDB(t)

	m, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRegisterDBMetrics_NoMeterProvider(t *testing.T) {
	db := setupTestDB(t)

	m, err := RegisterDBMetrics(db, nil, DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, m)
}
