// Package idempotency guarantees at-most-once handling per Telegram update,
// so updates redelivered after a long-poll restart never produce duplicate
// relays.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress reports that another worker currently holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation is the unit of work guarded by an idempotency key.
type Operation func(ctx context.Context) error

// Manager executes operations at most once per key.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (fromCache bool, err error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

// NewManager builds a Manager over the given Store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

// Execute runs fn once for the key. A concurrent holder yields
// ErrRequestInProgress; a completed record short-circuits with fromCache=true.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return false, errors.New("operation fn cannot be nil")
	}

	locked, err := m.store.Lock(ctx, key, 5*time.Minute)
	if err != nil {
		return false, err
	}

	if !locked {
		record, err := m.store.Get(ctx, key)
		if err != nil {
			return false, err
		}

		if record != nil && record.Status == StatusCompleted {
			return true, nil
		}

		return false, ErrRequestInProgress
	}

	defer func() {
		if err := m.store.ReleaseLock(ctx, key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	// The lock is short-lived; the completed record is what makes redelivered
	// keys idempotent after the first holder releases it.
	record, err := m.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if record != nil && record.Status == StatusCompleted {
		return true, nil
	}

	if err := fn(ctx); err != nil {
		return false, err
	}

	if err := m.store.Set(ctx, key, &Record{Status: StatusCompleted}, ttl); err != nil {
		return false, err
	}

	return false, nil
}
