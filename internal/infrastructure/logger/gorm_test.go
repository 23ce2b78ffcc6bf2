package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestNewGormLogger_Defaults(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.ignoreRecordNotFoundError)
}

func TestNewGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, time.Second, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	changed := gl.LogMode(gormlogger.Silent)
	require.NotNil(t, changed)

	// Original logger is unchanged
	assert.Equal(t, gormlogger.Warn, gl.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("logs errors", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT * FROM inventory_terminals", 0
		}, errors.New("connection refused"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT * FROM inventory_terminals WHERE serial = 'X'", 0
		}, gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("slow queries are warned", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

		begin := time.Now().Add(-time.Second)
		gl.Trace(context.Background(), begin, func() (string, int64) {
			return "SELECT * FROM issuance_records", 42
		}, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, errors.New("boom"))

		assert.Empty(t, recorded.All())
	})

	t.Run("request ID from context is attached", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		ctx := context.WithValue(context.Background(), RequestIDKey, "req-777")
		gl.Trace(ctx, time.Now(), func() (string, int64) {
			return "UPDATE payment_records SET merchant_id = '7'", 1
		}, errors.New("boom"))

		logs := recorded.All()
		require.Len(t, logs, 1)

		found := false
		for _, field := range logs[0].Context {
			if field.Key == "request_id" {
				found = true
				assert.Equal(t, "req-777", field.String)
			}
		}
		assert.True(t, found)
	})

	t.Run("oversized SQL is truncated", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		longSQL := "INSERT INTO assignment_rows VALUES " + strings.Repeat("('PAX-001','91234'),", 200)
		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return longSQL, 200
		}, errors.New("boom"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		for _, field := range logs[0].Context {
			if field.Key == "sql" {
				assert.LessOrEqual(t, len(field.String), maxLoggedSQLLength+len("... (truncated)"))
				assert.True(t, strings.HasSuffix(field.String, "... (truncated)"))
			}
		}
	})
}

func TestGormLogger_Levels(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)

	gl.Info(context.Background(), "info %s", "message")
	gl.Warn(context.Background(), "warn %s", "message")
	gl.Error(context.Background(), "error %s", "message")

	assert.Len(t, recorded.All(), 3)
}

func TestGormLogger_LevelFiltering(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error)

	gl.Info(context.Background(), "info message")
	gl.Warn(context.Background(), "warn message")

	assert.Empty(t, recorded.All())
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
