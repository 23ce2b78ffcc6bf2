package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisSyncLock implements SyncLock on Redis SETNX. It keeps concurrent
// instances from pulling the settlement feed at the same time; the TTL
// bounds how long a crashed holder can block the next run.
type RedisSyncLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSyncLock creates a Redis-backed lock from configuration
func NewRedisSyncLock(cfg *config.RedisConfig) (*RedisSyncLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSyncLock{
		client:    client,
		keyPrefix: "postrack:lock:",
	}, nil
}

// NewRedisSyncLockWithClient creates a lock over an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSyncLockWithClient(client *redis.Client, keyPrefix string) *RedisSyncLock {
	if keyPrefix == "" {
		keyPrefix = "postrack:lock:"
	}
	return &RedisSyncLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to take the named lock with a TTL.
// Returns true if the lock was taken, false if another holder has it.
func (l *RedisSyncLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	taken, err := l.client.SetNX(ctx, l.keyPrefix+name, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return taken, nil
}

// Release frees the named lock; releasing an unheld lock is not an error
func (l *RedisSyncLock) Release(ctx context.Context, name string) error {
	if err := l.client.Del(ctx, l.keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisSyncLock) Close() error {
	return l.client.Close()
}

// Ensure RedisSyncLock implements SyncLock
var _ shared.SyncLock = (*RedisSyncLock)(nil)
