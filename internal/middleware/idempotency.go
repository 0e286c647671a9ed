package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/idempotency"
)

const updateKeyTTL = 24 * time.Hour

// Idempotency ensures handlers execute at most once per Telegram update key,
// deduplicating updates redelivered across long-poll restarts.
func Idempotency(manager idempotency.Manager, log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if manager == nil {
				return next(c)
			}

			key := extractUpdateKey(c)
			if key == "" {
				return next(c)
			}

			_, err := manager.Execute(context.Background(), key, updateKeyTTL, func(context.Context) error {
				return next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					return nil
				}

				log.Error("idempotent handler failed", slog.String("key", key), slog.Any("error", err))
				return err
			}

			return nil
		}
	}
}

func extractUpdateKey(c telebot.Context) string {
	msg := c.Message()
	if msg == nil || msg.ID == 0 {
		return ""
	}

	chatID := int64(0)
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}

	return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
}
