package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StatusProcessing marks a key whose operation is still running.
	StatusProcessing = "processing"
	// StatusCompleted marks a key whose operation finished successfully.
	StatusCompleted = "completed"
)

// Record is the stored outcome for an idempotency key.
type Record struct {
	Status string
}

// Store persists idempotency locks and records.
type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client *redis.Client, log *slog.Logger) Store {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

// Lock acquires the processing lock for the key.
func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, lockKey(key), StatusProcessing, lockTTL).Result()
	if err != nil {
		s.log.Error("failed to acquire idempotency lock", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return acquired, nil
}

// Get returns the stored record for the key, or nil when none exists.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	status, err := s.client.Get(ctx, recordKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		s.log.Error("failed to fetch idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	return &Record{Status: status}, nil
}

// Set stores the record for the key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	if err := s.client.Set(ctx, recordKey(key), record.Status, ttl).Err(); err != nil {
		s.log.Error("failed to store idempotency record", slog.String("key", key), slog.Any("error", err))
		return err
	}

	return nil
}

// ReleaseLock drops the processing lock for the key.
func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockKey(key)).Err()
}

func lockKey(key string) string {
	return fmt.Sprintf("idempotency:lock:%s", key)
}

func recordKey(key string) string {
	return fmt.Sprintf("idempotency:record:%s", key)
}
