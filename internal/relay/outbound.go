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
	"github.com/relaydesk/support-bot/pkg/metrics"
)

// RouteOutbound relays a staff reply posted in a topic back to the user owning
// that topic. Staff-chat traffic outside any topic is ignored. The returned
// error carries the provider detail accompanying the failing outcomes.
func (r *Relay) RouteOutbound(ctx context.Context, threadID int, msg *telebot.Message) (Outcome, error) {
	if msg == nil {
		return OutcomeIgnored, errors.New("nil message")
	}
	if threadID == 0 {
		return OutcomeIgnored, nil
	}

	start := time.Now()

	user, err := r.repo.FindByThreadID(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordRelay(metrics.DirectionOutbound, "", OutcomeUnknownThread.String(), time.Since(start))
			r.logOutbound(0, threadID, OutcomeUnknownThread, nil)
			return OutcomeUnknownThread, nil
		}

		r.logOutbound(0, threadID, OutcomeDeliveryFailed, err)
		return OutcomeDeliveryFailed, err
	}

	env := envelope.Classify(msg)
	if env.Kind == envelope.KindForward {
		// Nothing re-sendable: forward the message the reply points at, or
		// drop the event when it is not a reply.
		if msg.ReplyTo == nil {
			return OutcomeIgnored, nil
		}
		env.Original = msg.ReplyTo
	}

	dest := provider.Destination{ChatID: user.UserID}

	if err := r.dispatchBounded(ctx, dest, env); err != nil {
		outcome := r.classifySendFailure(err)
		metrics.RecordRelay(metrics.DirectionOutbound, string(env.Kind), outcome.String(), time.Since(start))
		r.logOutbound(user.UserID, threadID, outcome, err)
		return outcome, err
	}

	metrics.RecordRelay(metrics.DirectionOutbound, string(env.Kind), OutcomeDelivered.String(), time.Since(start))
	r.logOutbound(user.UserID, threadID, OutcomeDelivered, nil)
	return OutcomeDelivered, nil
}

func (r *Relay) classifySendFailure(err error) Outcome {
	switch r.failures.Classify(err) {
	case FailureBlocked:
		return OutcomeRecipientBlocked
	case FailureMissing:
		return OutcomeRecipientMissing
	default:
		return OutcomeDeliveryFailed
	}
}

func (r *Relay) logOutbound(userID int64, threadID int, outcome Outcome, err error) {
	attrs := []any{
		slog.Int64("user_id", userID),
		slog.Int("thread_id", threadID),
		slog.String("outcome", outcome.String()),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		r.log.Error("outbound reply not delivered", attrs...)
		return
	}

	r.log.Info("outbound reply routed", attrs...)
}
