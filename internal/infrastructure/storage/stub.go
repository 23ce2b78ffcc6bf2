// Package storage provides object storage backends for the upload archive.
package storage

import (
	"context"
	"errors"

	ingestapp "github.com/postrack/backend/internal/application/ingest"
	"go.uber.org/zap"
)

// StubArchiveStore is a placeholder implementation of ArchiveStore.
// It accepts and drops every upload.
// Use this when no archive bucket is configured; imports still work, they
// just leave no retained copy behind.
type StubArchiveStore struct {
	logger *zap.Logger
}

// NewStubArchiveStore creates a new StubArchiveStore
func NewStubArchiveStore(logger *zap.Logger) *StubArchiveStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubArchiveStore{logger: logger}
}

// Ensure StubArchiveStore implements ArchiveStore
var _ ingestapp.ArchiveStore = (*StubArchiveStore)(nil)

// Store logs and drops the upload
func (s *StubArchiveStore) Store(ctx context.Context, key, contentType string, data []byte) error {
	if key == "" {
		return errors.New("archive key is required")
	}

	s.logger.Debug("Archive disabled, dropping upload",
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}
