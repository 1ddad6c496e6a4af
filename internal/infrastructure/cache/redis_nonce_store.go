package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/redis/go-redis/v9"
)

// RedisNonceStore implements command.NonceStore on Redis. SETNX with a TTL
// makes check-and-record a single atomic operation, and the keyspace is
// shared by every worker process, which is what the replay guard requires in
// a multi-process deployment.
type RedisNonceStore struct {
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

// NewRedisNonceStore creates a Redis-backed nonce store and verifies the
// connection.
func NewRedisNonceStore(cfg RedisConfig) (*RedisNonceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisNonceStore{
		client:    client,
		keyPrefix: "connector:nonce:",
	}, nil
}

// NewRedisNonceStoreWithClient creates a store with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisNonceStoreWithClient(client *redis.Client, keyPrefix string) *RedisNonceStore {
	if keyPrefix == "" {
		keyPrefix = "connector:nonce:"
	}
	return &RedisNonceStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// CheckAndRecord records the (instance, nonce) pair, failing with
// command.ErrNonceReplayed when it was already seen within the window.
func (s *RedisNonceStore) CheckAndRecord(ctx context.Context, instanceID, nonce string, window time.Duration) error {
	key := s.keyPrefix + instanceID + ":" + nonce

	fresh, err := s.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return fmt.Errorf("failed to record nonce: %w", err)
	}
	if !fresh {
		return command.ErrNonceReplayed
	}
	return nil
}

// Close closes the Redis client
func (s *RedisNonceStore) Close() error {
	return s.client.Close()
}

// Ensure RedisNonceStore implements NonceStore
var _ command.NonceStore = (*RedisNonceStore)(nil)
