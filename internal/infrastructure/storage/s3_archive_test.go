package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/postrack/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3ArchiveStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ArchiveStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3ArchiveStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3ArchiveStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3ArchiveStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:            "test-bucket",
			AccessKey:         "test-key",
			SecretKey:         "test-secret",
			Region:            "us-east-1",
			Endpoint:          "http://localhost:9000",
			UsePathStyle:      true,
			PresignExpiration: 15 * time.Minute,
		}
		store, err := NewS3ArchiveStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Equal(t, "test-bucket", store.GetBucket())
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})

	t.Run("defaults endpoint and region when unset", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		store, err := NewS3ArchiveStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("adds http prefix when missing and no SSL", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    false,
		}
		store, err := NewS3ArchiveStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("adds https prefix when missing and SSL enabled", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    true,
		}
		store, err := NewS3ArchiveStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "http://localhost:9000",
		}
		store, err := NewS3ArchiveStore(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})
}

func TestS3ArchiveStoreOptions(t *testing.T) {
	baseConfig := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}

	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		store, err := NewS3ArchiveStore(baseConfig, WithLogger(logger))
		require.NoError(t, err)
		assert.NotNil(t, store.logger)
	})

	t.Run("WithPresignExpiration sets custom duration", func(t *testing.T) {
		store, err := NewS3ArchiveStore(baseConfig, WithPresignExpiration(1*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1*time.Hour, store.presignExpiration)
	})
}

func TestS3ArchiveStore_GenerateDownloadURL(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:            "test-bucket",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Endpoint:          "http://localhost:9000",
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
	store, err := NewS3ArchiveStore(cfg)
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		url, _, err := store.GenerateDownloadURL(context.Background(), "", 15*time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
		assert.Empty(t, url)
	})

	t.Run("generates valid presigned URL", func(t *testing.T) {
		url, expiresAt, err := store.GenerateDownloadURL(context.Background(), "uploads/payments/file.csv", 1*time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.True(t, strings.Contains(url, "localhost:9000"))
		assert.True(t, strings.Contains(url, "test-bucket"))
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("uses default expiration when not provided", func(t *testing.T) {
		url, expiresAt, err := store.GenerateDownloadURL(context.Background(), "uploads/payments/file.csv", 0)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.True(t, expiresAt.After(time.Now()))
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})
}

func TestS3ArchiveStore_KeyValidation(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	store, err := NewS3ArchiveStore(cfg)
	require.NoError(t, err)

	t.Run("Store rejects empty key", func(t *testing.T) {
		err := store.Store(context.Background(), "", "text/csv", []byte("a,b"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
	})

	t.Run("Fetch rejects empty key", func(t *testing.T) {
		_, err := store.Fetch(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
	})

	t.Run("ObjectExists rejects empty key", func(t *testing.T) {
		exists, err := store.ObjectExists(context.Background(), "")
		require.Error(t, err)
		assert.False(t, exists)
		assert.Contains(t, err.Error(), "key is required")
	})
}

func TestStubArchiveStore(t *testing.T) {
	store := NewStubArchiveStore(zap.NewNop())

	t.Run("accepts and drops uploads", func(t *testing.T) {
		err := store.Store(context.Background(), "uploads/assignments/file.csv", "text/csv", []byte("a,b"))
		assert.NoError(t, err)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		err := store.Store(context.Background(), "", "text/csv", nil)
		require.Error(t, err)
	})

	t.Run("nil logger is tolerated", func(t *testing.T) {
		store := NewStubArchiveStore(nil)
		assert.NoError(t, store.Store(context.Background(), "k", "text/csv", nil))
	})
}

// ============================================================================
// Integration Tests (require MinIO running)
// ============================================================================

// skipIntegration skips the test if MinIO is not available
func skipIntegration(t *testing.T) {
	t.Helper()
	// These tests require MinIO running on localhost:9000
	t.Skip("Skipping integration test. Run MinIO on localhost:9000 to enable.")
}

func TestIntegration_ArchiveRoundTrip(t *testing.T) {
	skipIntegration(t)

	cfg := &config.StorageConfig{
		Bucket:            "test-archive",
		AccessKey:         "minioadmin",
		SecretKey:         "minioadmin",
		Endpoint:          "http://localhost:9000",
		Region:            "us-east-1",
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
	store, err := NewS3ArchiveStore(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx))
	// EnsureBucket is idempotent
	require.NoError(t, store.EnsureBucket(ctx))

	key := "uploads/payments/2026-08-25/round-trip.csv"
	payload := []byte("receipt,amount\nRCPT-1,16825\n")

	require.NoError(t, store.Store(ctx, key, "text/csv", payload))

	exists, err := store.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	url, _, err := store.GenerateDownloadURL(ctx, key, 15*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}
