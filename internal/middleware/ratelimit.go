package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/relaydesk/support-bot/internal/errors"
	"github.com/relaydesk/support-bot/internal/ratelimit"
	"github.com/relaydesk/support-bot/pkg/metrics"
)

// RateLimit enforces per-user flood limits for incoming updates. Limiter
// failures fail open: flood protection must not block support traffic.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if limiter == nil || rules == nil {
				return next(c)
			}

			sender := c.Sender()
			if sender == nil {
				return next(c)
			}

			userID := sender.ID
			if rules.IsWhitelisted(userID) {
				return next(c)
			}

			limit, window, err := rules.GetPerUserLimit()
			if err != nil {
				log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
				return next(c)
			}

			key := fmt.Sprintf("user:%d", userID)
			result, err := limiter.Check(context.Background(), key, limit, window)
			if err != nil {
				log.Error("rate limiter check failed", slog.Int64("user_id", userID), slog.Any("error", err))
				return next(c)
			}

			if !result.Allowed {
				metrics.RecordRateLimited()
				log.Warn("update rejected by flood limiter", slog.Int64("user_id", userID))

				retryAfter := int(time.Until(result.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				appErr := apperrors.NewRateLimitError(retryAfter)
				_ = c.Send(appErr.UserMessage)
				return nil
			}

			return next(c)
		}
	}
}
