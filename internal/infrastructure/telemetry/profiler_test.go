package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/postrack/backend/internal/infrastructure/telemetry"
)

func TestNewProfiler_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.ProfilerConfig{
		Enabled: false,
	}

	p, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_MissingServerAddress(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.ProfilerConfig{
		Enabled:         true,
		ApplicationName: "postrack-backend",
	}

	_, err := telemetry.NewProfiler(cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server address is required")
}

func TestNewProfiler_MissingApplicationName(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://pyroscope:4040",
	}

	_, err := telemetry.NewProfiler(cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application name is required")
}

func TestProfiler_GetConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://pyroscope:4040",
		ApplicationName: "postrack-backend",
	}

	p, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)

	got := p.GetConfig()
	assert.Equal(t, cfg.ServerAddress, got.ServerAddress)
	assert.Equal(t, cfg.ApplicationName, got.ApplicationName)
}

func TestProfiler_Stop_Idempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)

	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, logger)
	require.NoError(t, err)

	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestDefaultProfilerConfig(t *testing.T) {
	cfg := telemetry.DefaultProfilerConfig("postrack-backend", "http://pyroscope:4040")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "postrack-backend", cfg.ApplicationName)
	assert.Equal(t, "http://pyroscope:4040", cfg.ServerAddress)

	assert.True(t, cfg.ProfileCPU)
	assert.True(t, cfg.ProfileAllocObjects)
	assert.True(t, cfg.ProfileAllocSpace)
	assert.True(t, cfg.ProfileInuseObjects)
	assert.True(t, cfg.ProfileInuseSpace)
	assert.True(t, cfg.ProfileGoroutines)

	assert.False(t, cfg.ProfileMutexCount)
	assert.False(t, cfg.ProfileMutexDuration)
	assert.False(t, cfg.ProfileBlockCount)
	assert.False(t, cfg.ProfileBlockDuration)
}
