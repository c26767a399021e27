package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/promosync/backend/internal/domain/sync"
)

// RedisRunLock implements RunLock using Redis
// This is suitable for distributed deployments where multiple engine
// instances need to agree on which configuration is currently running
type RedisRunLock struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRunLock creates a new Redis-based run lock
func NewRedisRunLock(cfg RedisConfig) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRunLock{
		client:    client,
		keyPrefix: "sync:run_lock:",
	}, nil
}

// NewRedisRunLockWithClient creates a run lock with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisRunLockWithClient(client *redis.Client, keyPrefix string) *RedisRunLock {
	if keyPrefix == "" {
		keyPrefix = "sync:run_lock:"
	}
	return &RedisRunLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to take the lock for a configuration using SETNX with a
// TTL in a single atomic operation. Returns true if the lock was taken,
// false if another run already holds it. The TTL guards against locks
// orphaned by a crashed engine instance.
func (l *RedisRunLock) Acquire(ctx context.Context, configurationID uuid.UUID, ttl time.Duration) (bool, error) {
	key := l.keyPrefix + configurationID.String()

	acquired, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	return acquired, nil
}

// Release frees the lock for a configuration
func (l *RedisRunLock) Release(ctx context.Context, configurationID uuid.UUID) error {
	key := l.keyPrefix + configurationID.String()

	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	return nil
}

// Close closes the Redis client
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisRunLock) GetClient() *redis.Client {
	return l.client
}

// Ensure RedisRunLock implements RunLock
var _ sync.RunLock = (*RedisRunLock)(nil)
