package logger

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler duplicates records to several slog handlers, used to tee
// error records into Sentry next to the regular output.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler creates a handler delegating every record to all the given handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled reports whether any of the wrapped handlers accepts the level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// WithAttrs returns a new fanout with the attributes applied to every branch.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}

	return &FanoutHandler{handlers: next}
}

// WithGroup returns a new fanout with the group applied to every branch.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}

	return &FanoutHandler{handlers: next}
}

// Handle delegates the record to every handler that accepts its level.
func (h *FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, record.Level) {
			continue
		}
		if err := next.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
