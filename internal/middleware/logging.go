package middleware

import (
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"
)

// Logging logs basic telemetry about incoming updates.
func Logging(log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			start := time.Now()

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			chatID := int64(0)
			threadID := 0
			if msg := c.Message(); msg != nil {
				threadID = msg.ThreadID
				if msg.Chat != nil {
					chatID = msg.Chat.ID
				}
			}

			err := next(c)

			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.Int64("chat_id", chatID),
				slog.Int("thread_id", threadID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}
