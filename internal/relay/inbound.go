package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/envelope"
	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/internal/topics"
	"github.com/relaydesk/support-bot/pkg/metrics"
)

// RouteInbound relays a user's message into their topic in the staff chat.
// The returned error carries detail for the failing outcomes and is non-nil
// for contract violations only when msg is nil.
func (r *Relay) RouteInbound(ctx context.Context, userID int64, profile topics.Profile, msg *telebot.Message) (Outcome, error) {
	if msg == nil {
		return OutcomeIgnored, errors.New("nil message")
	}

	start := time.Now()

	user, err := r.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		metrics.RecordRelay(metrics.DirectionInbound, "", OutcomeThreadUnavailable.String(), time.Since(start))
		r.logInbound(userID, 0, OutcomeThreadUnavailable, err)
		return OutcomeThreadUnavailable, err
	}
	if err == nil && user.Banned {
		metrics.RecordRelay(metrics.DirectionInbound, "", OutcomeBlocked.String(), time.Since(start))
		r.logInbound(userID, user.ThreadID, OutcomeBlocked, nil)
		return OutcomeBlocked, nil
	}

	threadID, err := r.resolver.Resolve(ctx, userID, profile)
	if err != nil {
		metrics.RecordRelay(metrics.DirectionInbound, "", OutcomeThreadUnavailable.String(), time.Since(start))
		r.logInbound(userID, 0, OutcomeThreadUnavailable, err)
		return OutcomeThreadUnavailable, err
	}

	env := envelope.Classify(msg)
	dest := provider.Destination{ChatID: r.cfg.SupportChatID, ThreadID: threadID}

	if err := r.dispatchBounded(ctx, dest, env); err != nil {
		metrics.RecordRelay(metrics.DirectionInbound, string(env.Kind), OutcomeDeliveryFailed.String(), time.Since(start))
		r.logInbound(userID, threadID, OutcomeDeliveryFailed, err)
		return OutcomeDeliveryFailed, err
	}

	r.acknowledge(ctx, userID)

	metrics.RecordRelay(metrics.DirectionInbound, string(env.Kind), OutcomeDelivered.String(), time.Since(start))
	r.logInbound(userID, threadID, OutcomeDelivered, nil)
	return OutcomeDelivered, nil
}

// acknowledge sends the one-time "request received" notice when the user's
// activity gate opens. It runs only after a successful dispatch and never
// affects the delivery outcome.
func (r *Relay) acknowledge(ctx context.Context, userID int64) {
	if r.gate == nil || r.cfg.AckMessage == "" {
		return
	}

	notify, err := r.gate.Mark(ctx, userID)
	if err != nil {
		r.log.Warn("activity gate unavailable", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	if !notify {
		return
	}

	callCtx, cancel := r.boundedCtx(ctx)
	defer cancel()

	if err := r.provider.SendText(callCtx, provider.Destination{ChatID: userID}, r.cfg.AckMessage); err != nil {
		r.log.Warn("failed to send acknowledgement", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}

	metrics.RecordAckNotice()
}

func (r *Relay) dispatchBounded(ctx context.Context, dest provider.Destination, env envelope.Envelope) error {
	callCtx, cancel := r.boundedCtx(ctx)
	defer cancel()

	return dispatch(callCtx, r.provider, dest, env)
}

func (r *Relay) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.CallTimeout)
}

func (r *Relay) logInbound(userID int64, threadID int, outcome Outcome, err error) {
	attrs := []any{
		slog.Int64("user_id", userID),
		slog.Int("thread_id", threadID),
		slog.String("outcome", outcome.String()),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		r.log.Error("inbound message not delivered", attrs...)
		return
	}

	r.log.Info("inbound message routed", attrs...)
}
