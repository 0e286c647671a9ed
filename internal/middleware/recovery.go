// Package middleware holds the telebot middleware chain and the HTTP logging
// middleware for the metrics server. A failure in one routed update must
// never take the process down or leak into other updates.
package middleware

import (
	"log/slog"
	"runtime/debug"

	telebot "gopkg.in/telebot.v3"
)

// Recovery catches panics in downstream handlers, logs them, and swallows the
// update so the poller keeps running.
func Recovery(log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					err = nil
				}
			}()

			return next(c)
		}
	}
}
