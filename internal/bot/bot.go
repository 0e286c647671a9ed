// Package bot binds the Telegram transport to the relay: it owns the poller,
// the middleware chain, command handlers, and the translation of routing
// outcomes into user- and staff-facing replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v3"

	apperrors "github.com/relaydesk/support-bot/internal/errors"
	"github.com/relaydesk/support-bot/internal/relay"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/internal/topics"
	"github.com/relaydesk/support-bot/pkg/config"
)

// relayEndpoints are the update kinds the relay forwards verbatim. Anything
// outside the classifier's known kinds still lands here and is relayed as a
// forwarded copy.
var relayEndpoints = []string{
	telebot.OnText,
	telebot.OnPhoto,
	telebot.OnDocument,
	telebot.OnVoice,
	telebot.OnVideo,
	telebot.OnVideoNote,
	telebot.OnSticker,
	telebot.OnLocation,
	telebot.OnContact,
	telebot.OnAudio,
	telebot.OnAnimation,
	telebot.OnDice,
	telebot.OnVenue,
}

// Bot wires handlers onto a telebot instance and runs the long-poll loop.
type Bot struct {
	tb            *telebot.Bot
	relay         *relay.Relay
	repo          repository.UserRepository
	errs          *apperrors.Handler
	supportChatID int64
	log           *slog.Logger
}

// NewTelebot builds the underlying telebot instance with a long poller.
func NewTelebot(cfg config.BotConfig) (*telebot.Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return tb, nil
}

// New registers commands, relay endpoints and the middleware chain on tb.
func New(
	tb *telebot.Bot,
	router *relay.Relay,
	repo repository.UserRepository,
	errs *apperrors.Handler,
	cfg config.BotConfig,
	log *slog.Logger,
	mws ...telebot.MiddlewareFunc,
) *Bot {
	if log == nil {
		log = slog.Default()
	}

	b := &Bot{
		tb:            tb,
		relay:         router,
		repo:          repo,
		errs:          errs,
		supportChatID: cfg.SupportChatID,
		log:           log,
	}

	tb.Use(mws...)

	tb.Handle("/start", b.handleStart)
	tb.Handle("/ban", b.handleBan)
	tb.Handle("/unban", b.handleUnban)

	for _, endpoint := range relayEndpoints {
		tb.Handle(endpoint, b.handleRelay)
	}

	return b
}

// Start runs the poll loop until Stop is called.
func (b *Bot) Start() {
	b.log.Info("bot started", slog.String("username", b.tb.Me.Username))
	b.tb.Start()
}

// Stop terminates the poll loop.
func (b *Bot) Stop() {
	b.tb.Stop()
	b.log.Info("bot stopped")
}

// handleRelay dispatches an update by origin: staff supergroup updates go to
// the outbound router, private chats to the inbound one. Everything else
// (the bot added to unrelated groups) is dropped.
func (b *Bot) handleRelay(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return nil
	}

	switch {
	case msg.Chat.ID == b.supportChatID:
		return b.handleOutbound(c, msg)
	case msg.Chat.Type == telebot.ChatPrivate:
		return b.handleInbound(c, msg)
	default:
		return nil
	}
}

func (b *Bot) handleInbound(c telebot.Context, msg *telebot.Message) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	profile := topics.Profile{
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
		Username:  sender.Username,
	}

	outcome, err := b.relay.RouteInbound(ctx, sender.ID, profile, msg)

	switch outcome {
	case relay.OutcomeBlocked:
		return c.Send(bannedMessage)
	case relay.OutcomeThreadUnavailable:
		userMsg, _ := b.errs.Handle(ctx, apperrors.NewThreadCreationError(err))
		return c.Send(userMsg)
	case relay.OutcomeDeliveryFailed:
		userMsg, _ := b.errs.Handle(ctx, apperrors.NewProviderError(err))
		return c.Send(userMsg)
	default:
		return nil
	}
}

func (b *Bot) handleOutbound(c telebot.Context, msg *telebot.Message) error {
	ctx := context.Background()

	outcome, err := b.relay.RouteOutbound(ctx, msg.ThreadID, msg)

	switch outcome {
	case relay.OutcomeUnknownThread, relay.OutcomeRecipientMissing:
		return b.replyInThread(c, msg, userNotFoundNotice)
	case relay.OutcomeRecipientBlocked:
		return b.replyInThread(c, msg, userBlockedNotice)
	case relay.OutcomeDeliveryFailed:
		userMsg, _ := b.errs.Handle(ctx, apperrors.NewProviderError(err))
		return b.replyInThread(c, msg, userMsg)
	default:
		return nil
	}
}

// replyInThread answers staff inside the topic the triggering message came
// from, so notices never leak into the supergroup's general tab.
func (b *Bot) replyInThread(c telebot.Context, msg *telebot.Message, text string) error {
	return c.Send(text, &telebot.SendOptions{ThreadID: msg.ThreadID})
}
