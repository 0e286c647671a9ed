package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const ackKeyPattern = "ack:last:%d"

// RedisGate stores the per-user activity mark in Redis with a TTL equal to
// the cooldown, so an absent key means the window has elapsed. The existence
// check and the refresh run in one MULTI/EXEC pipeline.
type RedisGate struct {
	client   *redis.Client
	cooldown time.Duration
	log      *slog.Logger
}

var _ Gate = (*RedisGate)(nil)

// NewRedisGate creates a Redis-backed Gate with the given cooldown window.
func NewRedisGate(client *redis.Client, cooldown time.Duration, log *slog.Logger) *RedisGate {
	if log == nil {
		log = slog.Default()
	}

	return &RedisGate{
		client:   client,
		cooldown: cooldown,
		log:      log,
	}
}

// Mark refreshes the user's activity mark and reports whether the
// acknowledgement is due.
func (g *RedisGate) Mark(ctx context.Context, userID int64) (bool, error) {
	key := fmt.Sprintf(ackKeyPattern, userID)

	pipe := g.client.TxPipeline()
	existsCmd := pipe.Exists(ctx, key)
	pipe.Set(ctx, key, time.Now().Unix(), g.cooldown)

	if _, err := pipe.Exec(ctx); err != nil {
		g.log.Error("failed to update activity mark", slog.Int64("user_id", userID), slog.Any("error", err))
		return false, err
	}

	return existsCmd.Val() == 0, nil
}
