// Package logger builds the application's structured logger: leveled slog
// output to stdout and a rotating file, sensitive-field masking, and an
// optional Sentry tee for errors.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/relaydesk/support-bot/pkg/config"
)

var level slog.LevelVar

// New constructs the application logger according to cfg.
func New(cfg config.Config) *slog.Logger {
	SetLevel(cfg.Logger.Level)

	var writer io.Writer = os.Stdout
	if cfg.Logger.File.Path != "" {
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logger.File.Path,
			MaxSize:    cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAge:     cfg.Logger.File.MaxAgeDays,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: &level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handler = NewFanoutHandler(handler, sentryHandler)
	}

	return slog.New(NewMaskingHandler(handler))
}

// SetLevel adjusts the global log level at runtime; unknown names fall back
// to info.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}
