// Package topics owns the at-most-one-topic-per-user invariant: it resolves a
// user to their forum topic, creating the topic exactly once on first contact.
package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/pkg/metrics"
)

// ErrThreadCreation indicates the provider could not create a topic. Callers
// must not retry within the same routed event.
var ErrThreadCreation = errors.New("thread creation failed")

// Resolver maps users to forum topics, creating records and topics on demand.
//
// The read-check-create-write sequence runs under a per-user mutex so that
// concurrent first contact from the same user yields exactly one record and
// one topic. The repository's guarded SetThread is a second line of defense:
// should a second writer slip through, its assignment is rejected and the
// current record is re-read instead of treating the extra topic as canonical.
type Resolver struct {
	repo        repository.UserRepository
	provider    provider.Provider
	callTimeout time.Duration
	log         *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewResolver constructs a Resolver. callTimeout bounds the provider call
// made when a topic has to be created.
func NewResolver(repo repository.UserRepository, p provider.Provider, callTimeout time.Duration, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{
		repo:        repo,
		provider:    p,
		callTimeout: callTimeout,
		log:         log,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// Resolve returns the user's topic id, creating the user record and the topic
// when missing. Repeated calls for the same user return the same id without
// further provider calls.
func (r *Resolver) Resolve(ctx context.Context, userID int64, profile Profile) (int, error) {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := r.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if user.HasThread() {
			r.releaseLock(userID)
			return user.ThreadID, nil
		}
	case errors.Is(err, repository.ErrNotFound):
		if user, err = r.repo.Create(ctx, userID, ""); err != nil {
			return 0, fmt.Errorf("create user record: %w", err)
		}
	default:
		return 0, fmt.Errorf("find user record: %w", err)
	}

	name := TopicName(profile, userID)

	callCtx := ctx
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	threadID, err := r.provider.CreateThread(callCtx, name)
	if err != nil {
		r.log.Error("failed to create topic",
			slog.Int64("user_id", userID),
			slog.String("name", name),
			slog.Any("error", err),
		)
		return 0, fmt.Errorf("%w: %v", ErrThreadCreation, err)
	}

	if err := r.repo.SetThread(ctx, userID, threadID); err != nil {
		if errors.Is(err, repository.ErrThreadTaken) {
			// Lost the assignment race; the stored topic is canonical.
			current, findErr := r.repo.FindByUserID(ctx, userID)
			if findErr == nil && current.HasThread() {
				r.releaseLock(userID)
				return current.ThreadID, nil
			}
		}
		return 0, fmt.Errorf("persist thread id: %w", err)
	}

	r.releaseLock(userID)

	metrics.RecordTopicCreated()
	r.log.Info("created topic for user",
		slog.Int64("user_id", userID),
		slog.Int("thread_id", threadID),
		slog.String("name", name),
	)

	return threadID, nil
}

// releaseLock drops the user's entry once the mapping exists. Creation
// ordering is no longer needed then: every later Resolve takes the read-only
// fast path, and waiters still holding the old mutex re-read the record.
// Failed resolutions keep their entry for the retry.
func (r *Resolver) releaseLock(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, userID)
}

func (r *Resolver) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}

	return lock
}
