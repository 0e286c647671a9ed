package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaydesk/support-bot/internal/domain"
)

// ErrNotFound is returned when no user record matches the lookup key.
var ErrNotFound = errors.New("user not found")

// ErrThreadTaken is returned when a thread assignment would overwrite an
// existing one: a user's topic id is set at most once and never changed.
var ErrThreadTaken = errors.New("thread already assigned")

// UserRepository is the directory of user-to-topic mappings and ban state.
// It is the single source of truth for the mapping; callers must re-read it
// per routed event instead of caching results.
type UserRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.User, error)
	FindByThreadID(ctx context.Context, threadID int) (*domain.User, error)
	Create(ctx context.Context, userID int64, platform string) (*domain.User, error)
	SetThread(ctx context.Context, userID int64, threadID int) error
	SetBanned(ctx context.Context, userID int64, banned bool) error
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

const selectColumns = `
	SELECT id, chat_id, COALESCE(topic_id, 0), platform, is_banned, banned_at, created_at, updated_at
	FROM bot_users
`

// FindByUserID retrieves a user record by the external user identifier.
func (r *userRepository) FindByUserID(ctx context.Context, userID int64) (*domain.User, error) {
	const query = selectColumns + ` WHERE chat_id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID), "chat_id", userID)
}

// FindByThreadID retrieves the user record owning the given forum topic.
func (r *userRepository) FindByThreadID(ctx context.Context, threadID int) (*domain.User, error) {
	const query = selectColumns + ` WHERE topic_id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, threadID), "topic_id", int64(threadID))
}

// Create registers a new user with no topic assigned. Concurrent creates for
// the same user collapse into a single record: the insert is a no-op on
// conflict and the current row is re-read afterwards.
func (r *userRepository) Create(ctx context.Context, userID int64, platform string) (*domain.User, error) {
	if platform == "" {
		platform = domain.PlatformTelegram
	}

	const query = `
		INSERT INTO bot_users (chat_id, platform)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, userID, platform); err != nil {
		r.logError("create user", userID, err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return r.FindByUserID(ctx, userID)
}

// SetThread assigns a forum topic to the user. The guard on topic_id IS NULL
// enforces the at-most-once assignment at the SQL level; a second writer gets
// ErrThreadTaken and must re-read the now-current record.
func (r *userRepository) SetThread(ctx context.Context, userID int64, threadID int) error {
	const query = `
		UPDATE bot_users
		SET topic_id = $1, updated_at = NOW()
		WHERE chat_id = $2 AND topic_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, threadID, userID)
	if err != nil {
		r.logError("set thread", userID, err)
		return fmt.Errorf("update user topic: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user topic: %w", err)
	}
	if affected == 0 {
		current, findErr := r.FindByUserID(ctx, userID)
		if findErr != nil {
			return findErr
		}
		if current.HasThread() {
			return ErrThreadTaken
		}
		return ErrNotFound
	}

	return nil
}

// SetBanned toggles the ban flag. banned_at is set together with the flag and
// cleared on unban, keeping the two fields consistent.
func (r *userRepository) SetBanned(ctx context.Context, userID int64, banned bool) error {
	const query = `
		UPDATE bot_users
		SET is_banned = $1,
		    banned_at = CASE WHEN $1 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE chat_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, banned, userID)
	if err != nil {
		r.logError("set banned", userID, err)
		return fmt.Errorf("update user ban state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user ban state: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) scanOne(row *sql.Row, key string, value int64) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.UserID,
		&user.ThreadID,
		&user.Platform,
		&user.Banned,
		&user.BannedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user", slog.String("key", key), slog.Int64("value", value), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user by %s: %w", key, err)
	}

	return &user, nil
}

func (r *userRepository) logError(operation string, userID int64, err error) {
	if r.log == nil || err == nil {
		return
	}

	r.log.Error("user repository operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
